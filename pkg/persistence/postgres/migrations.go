package postgres

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger JSONB NOT NULL,
				conditions JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				execution_count BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_enabled ON workflows(enabled);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE webhook_bindings (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				path VARCHAR(512) NOT NULL,
				method VARCHAR(16) NOT NULL DEFAULT 'POST',
				headers JSONB,
				secret VARCHAR(255) NOT NULL DEFAULT '',
				payload_schema JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_webhook_bindings_workflow_id ON webhook_bindings(workflow_id);

			CREATE TABLE schedule_bindings (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				cron_expression VARCHAR(255) NOT NULL,
				timezone VARCHAR(255) NOT NULL DEFAULT '',
				next_run_at TIMESTAMP WITH TIME ZONE NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_schedule_bindings_workflow_id ON schedule_bindings(workflow_id);
			CREATE INDEX idx_schedule_bindings_due ON schedule_bindings(enabled, next_run_at);

			CREATE TABLE data_change_bindings (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				table_name VARCHAR(255) NOT NULL,
				operation VARCHAR(16) NOT NULL DEFAULT '',
				conditions JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_data_change_bindings_workflow_id ON data_change_bindings(workflow_id);
			CREATE INDEX idx_data_change_bindings_table ON data_change_bindings(table_name);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				trigger_payload JSONB,
				status VARCHAR(32) NOT NULL,
				steps JSONB NOT NULL DEFAULT '[]',
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_started ON executions(workflow_id, started_at DESC);

			CREATE TABLE records (
				table_name VARCHAR(255) NOT NULL,
				id VARCHAR(255) NOT NULL,
				data JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (table_name, id)
			);
		`,
	}
}
