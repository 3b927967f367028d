package migrate

import "testing"

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestValidateDirRequiresDir(t *testing.T) {
	if err := ValidateDir(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
