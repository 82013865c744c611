package password

import (
	"os"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	// Ensure env is clean for this test; t.Setenv restores values afterwards.
	for _, k := range []string{"TASKER_BCRYPT_COST", "TASKER_PASSWORD_MIN_LEN", "TASKER_PASSWORD_MAX_BYTES"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	def := DefaultConfig()
	if cfg.Cost != def.Cost {
		t.Fatalf("cost mismatch: got=%d want=%d", cfg.Cost, def.Cost)
	}
	if cfg.Policy.MinLength != def.Policy.MinLength || cfg.Policy.MaxBytes != def.Policy.MaxBytes {
		t.Fatalf("policy mismatch: %+v", cfg.Policy)
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("TASKER_BCRYPT_COST", "12")
	t.Setenv("TASKER_PASSWORD_MIN_LEN", "10")
	t.Setenv("TASKER_PASSWORD_MAX_BYTES", "64")
	t.Setenv("TASKER_PASSWORD_REJECT_VERY_WEAK", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Cost != 12 {
		t.Fatalf("cost override failed: %d", cfg.Cost)
	}
	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxBytes != 64 || !cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"cost too low":   {"TASKER_BCRYPT_COST", "2"},
		"cost too high":  {"TASKER_BCRYPT_COST", "40"},
		"max over 72":    {"TASKER_PASSWORD_MAX_BYTES", "100"},
		"not a number":   {"TASKER_BCRYPT_COST", "ten"},
		"min over max":   {"TASKER_PASSWORD_MIN_LEN", "80"},
		"zero min chars": {"TASKER_PASSWORD_MIN_LEN", "0"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
