package bootstrap

import "testing"

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"带密码", "postgres://ctl:secret@db:5432/novastar?sslmode=disable", "postgres://ctl:****@db:5432/novastar?sslmode=disable"},
		{"无密码", "postgres://db:5432/novastar", "postgres://db:5432/novastar"},
		{"空", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskDSN(tt.dsn); got != tt.want {
				t.Errorf("maskDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}
