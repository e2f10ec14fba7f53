package simplexapi

// LogFields поля запроса для строки лога gRPC вызова
func (r *RunRequest) LogFields() []any {
	if r == nil {
		return nil
	}
	return []any{"mode", r.Mode, "nodes", r.Nodes, "arcs", r.Arcs, "runs", r.Runs}
}

// LogFields поля запроса для строки лога gRPC вызова
func (r *GetRunRequest) LogFields() []any {
	if r == nil {
		return nil
	}
	return []any{"run_id", r.RunID}
}

// LogFields поля запроса для строки лога gRPC вызова
func (r *ListRunsRequest) LogFields() []any {
	if r == nil {
		return nil
	}
	return []any{"mode", r.Mode, "limit", r.Limit, "offset", r.Offset}
}

// LogFields итог прогона; флаги пишутся только когда выставлены
func (r *RunResponse) LogFields() []any {
	if r == nil {
		return nil
	}
	args := []any{"run_id", r.RunID, "termination", r.Termination, "pivots", r.Pivots, "cached", r.Cached}
	if r.Infeasible {
		args = append(args, "infeasible", true, "artificial_flow", r.ArtificialFlow)
	}
	if r.TraceTruncated {
		args = append(args, "trace_truncated", true)
	}
	return args
}

func (r *ListRunsResponse) LogFields() []any {
	if r == nil {
		return nil
	}
	return []any{"total", r.Total, "returned", len(r.Runs)}
}

func (r *VerifyResponse) LogFields() []any {
	if r == nil {
		return nil
	}
	return []any{"valid", r.Valid, "checked", r.Checked}
}
