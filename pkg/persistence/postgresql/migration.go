package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE institutions (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(50),
				size VARCHAR(50),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE checklist_items (
				id UUID PRIMARY KEY,
				code VARCHAR(50) NOT NULL UNIQUE,
				requirement TEXT NOT NULL,
				question TEXT NOT NULL,
				component_type VARCHAR(50) NOT NULL
			);

			CREATE INDEX idx_checklist_items_component ON checklist_items(component_type);

			CREATE TABLE checklist_responses (
				id UUID NOT NULL,
				institution_id UUID NOT NULL REFERENCES institutions(id),
				checklist_item_id UUID NOT NULL REFERENCES checklist_items(id),
				answer VARCHAR(10) NOT NULL CHECK (answer IN ('yes', 'partial', 'no')),
				comment TEXT,
				evidence_ref VARCHAR(512),
				answered_by VARCHAR(255),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (institution_id, checklist_item_id)
			);

			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				institution_id UUID NOT NULL REFERENCES institutions(id),
				component_type VARCHAR(50) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				status VARCHAR(50) NOT NULL CHECK (status IN ('not_started', 'in_progress', 'completed', 'delayed', 'cancelled')),
				progress INT NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
				assigned_to_id VARCHAR(255),
				due_date TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_institution ON workflows(institution_id);
			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_due_date ON workflows(due_date);

			CREATE TABLE workflow_steps (
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id UUID NOT NULL,
				sequence_number INT NOT NULL,
				name VARCHAR(255) NOT NULL,
				responsible_role VARCHAR(255),
				planned_start_date TIMESTAMP WITH TIME ZONE,
				planned_end_date TIMESTAMP WITH TIME ZONE,
				estimated_duration INT NOT NULL DEFAULT 0,
				status VARCHAR(50) NOT NULL CHECK (status IN ('not_started', 'in_progress', 'completed')),
				status_changed_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (workflow_id, id),
				UNIQUE (workflow_id, sequence_number) DEFERRABLE INITIALLY DEFERRED
			);

			CREATE INDEX idx_workflow_steps_workflow ON workflow_steps(workflow_id);

			CREATE TABLE compliance_scores (
				id UUID PRIMARY KEY,
				institution_id UUID NOT NULL REFERENCES institutions(id),
				component_type VARCHAR(50) NOT NULL,
				score INT NOT NULL CHECK (score BETWEEN 0 AND 100),
				answered_items INT NOT NULL DEFAULT 0,
				total_items INT NOT NULL DEFAULT 0,
				is_baseline BOOLEAN NOT NULL DEFAULT FALSE,
				calculated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_compliance_scores_institution ON compliance_scores(institution_id, component_type, calculated_at DESC);

			CREATE TABLE execution_assessments (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id),
				assessor_id VARCHAR(255) NOT NULL,
				assessment_date TIMESTAMP WITH TIME ZONE NOT NULL,
				execution_status VARCHAR(50) NOT NULL CHECK (execution_status IN ('in_progress', 'completed', 'delayed', 'cancelled')),
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'under_review', 'final')),
				overall_fidelity_score INT CHECK (overall_fidelity_score BETWEEN 0 AND 100),
				design_compliance_score INT CHECK (design_compliance_score BETWEEN 0 AND 100),
				timeline_compliance_score INT CHECK (timeline_compliance_score BETWEEN 0 AND 100),
				quality_score INT CHECK (quality_score BETWEEN 0 AND 100),
				overall_findings TEXT,
				recommendations TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_assessments_workflow ON execution_assessments(workflow_id);
			CREATE INDEX idx_execution_assessments_status ON execution_assessments(status);

			CREATE TABLE step_assessments (
				id UUID PRIMARY KEY,
				execution_assessment_id UUID NOT NULL REFERENCES execution_assessments(id) ON DELETE CASCADE,
				workflow_step_id UUID NOT NULL,
				planned_start_date TIMESTAMP WITH TIME ZONE,
				actual_start_date TIMESTAMP WITH TIME ZONE,
				planned_end_date TIMESTAMP WITH TIME ZONE,
				actual_end_date TIMESTAMP WITH TIME ZONE,
				planned_duration INT NOT NULL DEFAULT 0,
				actual_duration INT NOT NULL DEFAULT 0,
				design_adherence VARCHAR(50) NOT NULL,
				execution_quality VARCHAR(50) NOT NULL,
				output_compliance VARCHAR(50) NOT NULL,
				observations TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_step_assessments_assessment ON step_assessments(execution_assessment_id);

			CREATE TABLE deviations (
				id UUID PRIMARY KEY,
				execution_assessment_id UUID NOT NULL REFERENCES execution_assessments(id),
				workflow_step_id UUID,
				type VARCHAR(50) NOT NULL CHECK (type IN ('timeline', 'process', 'quality', 'resource', 'responsibility')),
				severity VARCHAR(50) NOT NULL CHECK (severity IN ('critical', 'major', 'minor', 'informational')),
				description TEXT NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('open', 'under_review', 'resolved', 'closed')),
				identified_by VARCHAR(255),
				identified_at TIMESTAMP WITH TIME ZONE NOT NULL,
				resolution TEXT,
				resolved_at TIMESTAMP WITH TIME ZONE,
				resolved_by VARCHAR(255)
			);

			CREATE INDEX idx_deviations_assessment ON deviations(execution_assessment_id);
			CREATE INDEX idx_deviations_status ON deviations(status);
			CREATE INDEX idx_deviations_severity ON deviations(severity);

			-- Guards duplicate automatic deviations across assessment reruns
			CREATE UNIQUE INDEX idx_deviations_trigger
				ON deviations(execution_assessment_id, workflow_step_id, type)
				WHERE workflow_step_id IS NOT NULL;
		`,
	}
}
