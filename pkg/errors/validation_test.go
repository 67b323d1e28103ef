package errors

import (
	"testing"
)

func TestValidateRepoName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "widgets", false},
		{"valid with dash", "my-app", false},
		{"valid with underscore", "my_app", false},
		{"valid with dot", "app.site", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"path separator", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"dot", ".", true},
		{"dot dot", "..", true},
		{"hidden", ".git", true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRepoName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRepoName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "deploy", false},
		{"valid with dash", "web-ops", false},
		{"valid with underscore", "svc_account", false},
		{"valid leading underscore", "_apt", false},
		{"valid trailing dollar", "machine$", false},

		{"empty", "", true},
		{"too long", "abcdefghijklmnopqrstuvwxyzabcdefg", true},
		{"uppercase", "Deploy", true},
		{"starts with digit", "1deploy", true},
		{"starts with dash", "-deploy", true},
		{"spaces", "de ploy", true},
		{"slash", "de/ploy", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidUser) {
				t.Errorf("ValidateUsername(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateAptPackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "git", false},
		{"valid with dash", "docker-ce", false},
		{"valid with plus", "g++", false},
		{"valid with dot", "wireguard.tools", false},
		{"valid with digits", "libssl3", false},

		{"empty", "", true},
		{"single char", "g", true},
		{"uppercase", "Git", true},
		{"starts with dash", "-git", true},
		{"underscore", "wire_guard", true},
		{"spaces", "docker ce", true},
		{"shell metachar", "git;rm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAptPackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAptPackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid absolute", "/home/deploy/widgets", false},
		{"valid nested", "/etc/wireguard/wg0.conf", false},
		{"valid relative", "widgets/compose.yaml", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 600)), true},
		{"path traversal", "../../../etc/passwd", true},
		{"path traversal middle", "/home/../etc", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidURL,
		ErrCodeInvalidUser,
		ErrCodeInvalidPath,
		ErrCodeConfig,
		ErrCodeUnsupportedPlatform,
		ErrCodePackageInstall,
		ErrCodeFirewall,
		ErrCodeCloneFailed,
		ErrCodeKeygenFailed,
		ErrCodeSSHAuthFailed,
		ErrCodeSSHSetupAborted,
		ErrCodeBranchNotFound,
		ErrCodeVerifyFailed,
		ErrCodeNotFound,
		ErrCodeFileNotFound,
		ErrCodeReportNotFound,
		ErrCodeCommandFailed,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
