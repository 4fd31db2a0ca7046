package redact

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"capcall/internal/domain"
)

func TestValue_SensitiveKeysAndCredentialSubstring(t *testing.T) {
	r := New("secret123")
	input := map[string]any{
		"token": "secret123",
		"note":  "uses secret123 internally",
	}
	snapshot := domain.CloneValue(input).(map[string]any)

	out := r.Value(input).(map[string]any)
	require.Equal(t, "***", out["token"])
	require.Equal(t, "uses *** internally", out["note"])

	// The caller's object is untouched.
	require.Empty(t, cmp.Diff(snapshot, input))
}

func TestValue_SensitiveKeyReplacedWithoutRecursion(t *testing.T) {
	r := New("")
	input := map[string]any{
		"authorization": map[string]any{"scheme": "basic", "user": "alpha"},
		"config":        map[string]any{"retries": 2.0},
	}

	out := r.Value(input).(map[string]any)
	require.Equal(t, "***", out["authorization"])
	require.Equal(t, map[string]any{"retries": 2.0}, out["config"])
}

func TestValue_CaseVariantsOfSensitiveKeys(t *testing.T) {
	r := New("")
	input := map[string]any{
		"Token":   "a",
		"API_KEY": "b",
		"apiKey":  "c",
		"Cookie":  "d",
		"tokens":  "not exact, kept",
	}

	out := r.Value(input).(map[string]any)
	require.Equal(t, "***", out["Token"])
	require.Equal(t, "***", out["API_KEY"])
	require.Equal(t, "***", out["apiKey"])
	require.Equal(t, "***", out["Cookie"])
	require.Equal(t, "not exact, kept", out["tokens"])
}

func TestString_BearerShape(t *testing.T) {
	r := New("")
	require.Equal(t, "Bearer ***", r.String("Bearer eyJhbGciOiJIUzI1NiJ9"))
	require.Equal(t, "bearer ***", r.String("bearer abc"))
	require.Equal(t, "Bearer", r.String("Bearer"))
	require.Equal(t, "use Bearer tokens", r.String("use Bearer tokens"))
}

func TestValue_DeepStructuresCopied(t *testing.T) {
	r := New("hunter2")
	input := []any{
		map[string]any{"items": []any{"safe", "prefix hunter2 suffix"}},
		42.0,
		true,
		nil,
	}

	out := r.Value(input).([]any)
	require.Equal(t, "prefix *** suffix", out[0].(map[string]any)["items"].([]any)[1])
	require.Equal(t, "prefix hunter2 suffix", input[0].(map[string]any)["items"].([]any)[1])
	require.Equal(t, 42.0, out[1])
	require.Equal(t, true, out[2])
	require.Nil(t, out[3])
}

func TestDescriptor_MasksSchemasKeepsName(t *testing.T) {
	r := New("tok-999")
	descriptor := domain.CapabilityDescriptor{
		Name: "zai.vision.analyze_image",
		InputSchema: map[string]any{
			"type":    "object",
			"apiKey":  "tok-999",
			"example": "call with tok-999",
		},
	}

	out := r.Descriptor(descriptor)
	require.Equal(t, "zai.vision.analyze_image", out.Name)
	schema := out.InputSchema.(map[string]any)
	require.Equal(t, "***", schema["apiKey"])
	require.Equal(t, "call with ***", schema["example"])
	require.Equal(t, "tok-999", descriptor.InputSchema.(map[string]any)["apiKey"])
}

func TestCatalog_PreservesOrder(t *testing.T) {
	r := New("")
	catalog := []domain.CapabilityDescriptor{
		{Name: "zai.chat.complete"},
		{Name: "zai.vision.analyze_image"},
	}

	out := r.Catalog(catalog)
	require.Len(t, out, 2)
	require.Equal(t, "zai.chat.complete", out[0].Name)
	require.Equal(t, "zai.vision.analyze_image", out[1].Name)
	require.Nil(t, r.Catalog(nil))
}
