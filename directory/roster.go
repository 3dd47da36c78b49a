package directory

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
)

// LoadRoster parses an attestor roster document.
//
// The JSON document contains an "attestors" array of directory records:
//
//	{"attestors": [{"id": "...", "did": "...", "name": "...",
//	                "capabilities": ["kyc"]}, ...]}
//
// Records are returned in file order; registering them is left to the
// caller so linkage checks stay configurable.
func LoadRoster(r io.Reader) ([]interfaces.Attestor, error) {
	var doc struct {
		Attestors []interfaces.Attestor `json:"attestors"`
	}

	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode attestor roster: %w", err)
	}

	if len(doc.Attestors) == 0 {
		return nil, fmt.Errorf("attestor roster is empty")
	}

	seen := make(map[interfaces.AttestorID]struct{}, len(doc.Attestors))
	for _, att := range doc.Attestors {
		if att.ID == "" {
			return nil, fmt.Errorf("attestor roster entry without id")
		}
		if _, dup := seen[att.ID]; dup {
			return nil, fmt.Errorf("duplicate attestor %s in roster", att.ID)
		}
		seen[att.ID] = struct{}{}
	}

	return doc.Attestors, nil
}
