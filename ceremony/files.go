package ceremony

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// shaped is implemented by documents that can be structurally empty after decoding.
type shaped interface {
	checkDecoded() error
}

// Decode reads one JSON document into v. Unknown fields are rejected, so a file of
// one shape never decodes as another.
func Decode(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(ErrDeserializationFailed, err.Error())
	}
	if s, ok := v.(shaped); ok {
		return s.checkDecoded()
	}
	return nil
}

// ReadFile decodes the JSON file at path into v.
func ReadFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return errors.WithMessage(Decode(f, v), path)
}

// WriteFile encodes v as JSON into a new file at path.
func WriteFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := bufio.NewWriter(f)
	enc := json.NewEncoder(writer)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := writer.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ContributeFile reads a batch contribution, mixes in the secret and writes the
// result to outputPath.
func (c *Ceremony) ContributeFile(inputPath, outputPath string, secret *Secret, id Identity) error {
	var bc BatchContribution
	if err := ReadFile(inputPath, &bc); err != nil {
		return err
	}
	c.log.Infow("read contribution", "path", inputPath, "subCeremonies", len(bc.Contributions))
	out, err := c.Contribute(&bc, secret, id)
	if err != nil {
		return err
	}
	if err := WriteFile(outputPath, out); err != nil {
		return err
	}
	c.log.Infow("wrote contribution", "path", outputPath)
	return nil
}

// CheckSubgroupFile runs Validate on the batch contribution at path.
func (c *Ceremony) CheckSubgroupFile(path string) error {
	var bc BatchContribution
	if err := ReadFile(path, &bc); err != nil {
		return err
	}
	return c.Validate(&bc)
}

// VerifyFile runs Verify on the batch transcript at path.
func (c *Ceremony) VerifyFile(path string) error {
	var bt BatchTranscript
	if err := ReadFile(path, &bt); err != nil {
		return err
	}
	return c.Verify(&bt)
}
