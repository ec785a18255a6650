package l2store

import "encoding/json"

func encodeIngestionMessage(m IngestionMessage) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeIngestionMessage(payload string, m *IngestionMessage) error {
	return json.Unmarshal([]byte(payload), m)
}
