package queue

import (
	_ "embed"
	"encoding/hex"
	"encoding/json"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/crypto/blake2b"
)

//go:embed record.schema.json
var entrySchemaJSON string

var entrySchema = jsonschema.MustCompileString("record.schema.json", entrySchemaJSON)

// Digest returns the hex BLAKE2b-256 of the record's JSON form.
func Digest(rec models.SubmissionRecord) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// validateShape checks raw payload bytes against the entry schema.
func validateShape(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return entrySchema.Validate(v)
}
