package api

import (
	"fmt"
	"strings"

	"github.com/avesier/menurota/internal/domain"
)

// maxPayloadTags bounds the number of tag mappings one entry may carry.
const maxPayloadTags = 100

func validatePayload(p domain.Payload) error {
	if len(p) > maxPayloadTags {
		return fmt.Errorf("payload exceeds %d tags", maxPayloadTags)
	}
	for tag := range p {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("payload contains an empty tag slug")
		}
	}
	return nil
}

func validateStatus(s string) (domain.EntryStatus, error) {
	status := domain.EntryStatus(s)
	if !domain.ValidStatus(status) {
		return "", fmt.Errorf("status must be one of 'pending', 'completed', 'cancelled', got %q", s)
	}
	return status, nil
}
