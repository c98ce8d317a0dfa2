package validators

import (
	"strings"

	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/google/uuid"
)

// ParseUUID parses a path or query id, naming the parameter on failure.
func ParseUUID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "Invalid %s: %s", name, raw).WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
