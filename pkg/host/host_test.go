package host

import (
	"strings"
	"testing"
)

func TestParseOSRelease(t *testing.T) {
	input := `# Ubuntu identity
PRETTY_NAME="Ubuntu 24.04.1 LTS"
NAME="Ubuntu"
VERSION_ID="24.04"
ID=ubuntu
ID_LIKE=debian
VERSION_CODENAME=noble
malformed line without equals
HOME_URL="https://www.ubuntu.com/"
`

	fields := parseOSRelease(strings.NewReader(input))

	tests := []struct {
		key  string
		want string
	}{
		{"ID", "ubuntu"},
		{"ID_LIKE", "debian"},
		{"VERSION_ID", "24.04"},
		{"VERSION_CODENAME", "noble"},
		{"PRETTY_NAME", "Ubuntu 24.04.1 LTS"},
	}

	for _, tt := range tests {
		if got := fields[tt.key]; got != tt.want {
			t.Errorf("fields[%q] = %q, want %q", tt.key, got, tt.want)
		}
	}

	if _, ok := fields["malformed line without equals"]; ok {
		t.Error("malformed line should be skipped")
	}
}

func TestParseOSReleaseSingleQuotes(t *testing.T) {
	fields := parseOSRelease(strings.NewReader("ID='debian'\n"))
	if fields["ID"] != "debian" {
		t.Errorf("fields[ID] = %q, want debian", fields["ID"])
	}
}

func TestCheckPlatform(t *testing.T) {
	if err := (Info{OS: "linux"}).CheckPlatform(); err != nil {
		t.Errorf("CheckPlatform() on linux = %v, want nil", err)
	}
	if err := (Info{OS: "darwin"}).CheckPlatform(); err == nil {
		t.Error("CheckPlatform() on darwin should fail")
	}
}

func TestSupportedDistro(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want bool
	}{
		{"ubuntu", Info{ID: "ubuntu"}, true},
		{"debian", Info{ID: "debian"}, true},
		{"mint via id_like", Info{ID: "linuxmint", IDLike: []string{"ubuntu", "debian"}}, true},
		{"fedora", Info{ID: "fedora"}, false},
		{"arch", Info{ID: "arch", IDLike: []string{"archlinux"}}, false},
		{"empty", Info{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.SupportedDistro(); got != tt.want {
				t.Errorf("SupportedDistro() = %v, want %v", got, tt.want)
			}
		})
	}
}
