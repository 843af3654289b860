package util

import (
	"io"

	"github.com/goccy/go-json"
)

func WriteIndentedJSON(w io.Writer, data any) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	payload = append(payload, '\n')
	_, err = w.Write(payload)
	return err
}
