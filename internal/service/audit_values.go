package service

import "encoding/json"

func marshalAuditValues(values map[string]any) []byte {
	if len(values) == 0 {
		return nil
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return payload
}
