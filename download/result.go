package download

// Result is the value object returned by every downloader.
//
// DatasetPath is the absolute path to the destination root directory and is
// always set; it exists on disk whenever a Result is returned successfully.
// Details is an open-ended map capturing backend-specific provenance (source
// identifiers, written file paths, whether extraction occurred, the command
// invoked). Details is never required for correctness, only for
// observability and testing; Details["files"], when present, lists paths
// that also exist.
type Result struct {
	DatasetPath string
	Details     map[string]interface{}
}

// AsMap returns a serializable representation of the result:
// {"dataset_path": <absolute path>, "details": {...}}.
func (r *Result) AsMap() map[string]interface{} {
	payload := map[string]interface{}{
		"dataset_path": r.DatasetPath,
	}
	if len(r.Details) > 0 {
		payload["details"] = r.Details
	}
	return payload
}
