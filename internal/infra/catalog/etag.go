package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"capcall/internal/domain"
)

// catalogETag returns a deterministic digest of a descriptor list, used
// for change detection in logs and list output. Descriptors are hashed
// in catalog order with a separator so boundaries stay unambiguous.
func catalogETag(descriptors []domain.CapabilityDescriptor) string {
	hasher := sha256.New()
	for _, descriptor := range descriptors {
		raw, err := json.Marshal(descriptor)
		if err != nil {
			return ""
		}
		_, _ = hasher.Write(raw)
		_, _ = hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
