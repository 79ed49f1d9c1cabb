package checklist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeCatalog(t, `{
		"items": [
			{
				"id": "ci-001",
				"code": "AC-01",
				"requirement": "Código de ética institucional",
				"question": "¿Existe un código de ética aprobado y difundido?",
				"component_type": "ambiente_control"
			},
			{
				"id": "ci-002",
				"code": "ER-01",
				"requirement": "Identificación de riesgos",
				"question": "¿Se identifican los riesgos de los procesos clave?",
				"component_type": "evaluacion_riesgos"
			}
		]
	}`)

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "AC-01", items[0].Code)
	assert.Equal(t, models.ComponentRiskAssessment, items[1].ComponentType)
}

func TestLoad_InvalidComponentRejected(t *testing.T) {
	path := writeCatalog(t, `{
		"items": [
			{
				"id": "ci-001",
				"code": "XX-01",
				"requirement": "r",
				"question": "q",
				"component_type": "not_a_component"
			}
		]
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestLoad_MissingFieldsRejected(t *testing.T) {
	path := writeCatalog(t, `{"items": [{"id": "ci-001"}]}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_DuplicateCodesRejected(t *testing.T) {
	path := writeCatalog(t, `{
		"items": [
			{"id": "a", "code": "AC-01", "requirement": "r", "question": "q", "component_type": "supervision"},
			{"id": "b", "code": "AC-01", "requirement": "r", "question": "q", "component_type": "supervision"}
		]
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate item code")
}

func TestLoad_EmptyCatalogRejected(t *testing.T) {
	path := writeCatalog(t, `{"items": []}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())

	items := []*models.ChecklistItem{
		{ID: "ci-001", Code: "AC-01", Requirement: "r", Question: "q", ComponentType: models.ComponentControlEnvironment},
		{ID: "ci-002", Code: "SU-01", Requirement: "r", Question: "q", ComponentType: models.ComponentMonitoring},
	}

	err := Seed(t.Context(), persistence, items)
	require.NoError(t, err)

	stored, err := persistence.Checklist().Items(t.Context())
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	monitoring, err := persistence.Checklist().ItemsByComponent(t.Context(), models.ComponentMonitoring)
	require.NoError(t, err)
	require.Len(t, monitoring, 1)
	assert.Equal(t, "SU-01", monitoring[0].Code)
}
