package homework

import "testing"

func TestVerdictCatalog(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status string
		want   string
	}{
		{status: "approved", want: "Работа проверена: ревьюеру всё понравилось. Ура!"},
		{status: "reviewing", want: "Работа взята на проверку ревьюером."},
		{status: "rejected", want: "Работа проверена: у ревьюера есть замечания."},
	}
	for _, tt := range tests {
		got, ok := Verdict(tt.status)
		if !ok {
			t.Fatalf("Verdict(%q) not found", tt.status)
		}
		if got != tt.want {
			t.Fatalf("Verdict(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}

	if _, ok := Verdict("accepted"); ok {
		t.Fatal("unknown status must not resolve")
	}
	if len(verdicts) != 3 {
		t.Fatalf("catalog has %d statuses, want 3", len(verdicts))
	}
}
