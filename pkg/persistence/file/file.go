// Package file provides file-based persistence for the compliance core.
// Each entity lives in its own subdirectory as one JSON document per row.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cumplia/sgci/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the
// file system.
type Persistence struct {
	root            string
	institutionRepo *InstitutionRepository
	checklistRepo   *ChecklistRepository
	workflowRepo    *WorkflowRepository
	scoreRepo       *ScoreRepository
	assessmentRepo  *AssessmentRepository
	deviationRepo   *DeviationRepository
}

// NewPersistence creates a new instance of Persistence rooted at the given
// directory. Accepts plain paths and file:// URLs.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	workflowRepo := &WorkflowRepository{root: cleanRoot}

	return &Persistence{
		root:            cleanRoot,
		institutionRepo: &InstitutionRepository{root: cleanRoot},
		checklistRepo:   &ChecklistRepository{root: cleanRoot},
		workflowRepo:    workflowRepo,
		scoreRepo:       &ScoreRepository{root: cleanRoot},
		assessmentRepo:  &AssessmentRepository{root: cleanRoot, workflows: workflowRepo},
		deviationRepo:   &DeviationRepository{root: cleanRoot},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Institutions() persistence.InstitutionRepository {
	return fp.institutionRepo
}

func (fp *Persistence) Checklist() persistence.ChecklistRepository {
	return fp.checklistRepo
}

func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) Scores() persistence.ScoreRepository {
	return fp.scoreRepo
}

func (fp *Persistence) Assessments() persistence.AssessmentRepository {
	return fp.assessmentRepo
}

func (fp *Persistence) Deviations() persistence.DeviationRepository {
	return fp.deviationRepo
}

// writeDocument marshals v and writes it under <root>/<dir>/<id>.json,
// creating the directory on first use.
func writeDocument(root, dir, id string, v any) error {
	target := path.Join(root, dir)

	err := os.MkdirAll(target, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", dir, id, err)
	}

	return os.WriteFile(path.Join(target, id+".json"), data, 0600)
}

// readDocument unmarshals <root>/<dir>/<id>.json into v. Returns
// os.ErrNotExist when the document is absent.
func readDocument(root, dir, id string, v any) error {
	filePath := filepath.Clean(path.Join(root, dir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s/%s: %w", dir, id, err)
	}

	return nil
}

// documentIDs lists the ids of every document stored under <root>/<dir>.
// An entity directory that was never written to is an empty collection.
func documentIDs(root, dir string) ([]string, error) {
	if _, err := os.Stat(path.Join(root, dir)); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := fs.Glob(os.DirFS(path.Join(root, dir)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, strings.TrimSuffix(entry, ".json"))
	}

	return ids, nil
}
