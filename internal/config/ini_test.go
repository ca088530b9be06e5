package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadINI(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, b Base)
	}{
		{
			name: "basic server and exec sections",
			content: `
[server]
bind=0.0.0.0
port=8080
enable_scan=true

[exec]
interpreter=/bin/sh -c
timeout_ms=2000
max_output_bytes=4096
`,
			check: func(t *testing.T, b Base) {
				if b.Bind != "0.0.0.0" || b.Port != 8080 || !b.EnableScan {
					t.Fatalf("server section not applied: %+v", b)
				}
				if b.Interpreter != "/bin/sh -c" || b.TimeoutMS != 2000 || b.MaxOutputBytes != 4096 {
					t.Fatalf("exec section not applied: %+v", b)
				}
			},
		},
		{
			name: "comments and blank lines ignored",
			content: `
# a comment
; another comment

[server]
port=9
`,
			check: func(t *testing.T, b Base) {
				if b.Port != 9 {
					t.Fatalf("expected port 9, got %d", b.Port)
				}
			},
		},
		{
			name: "repeatable announce and scan keys",
			content: `
[announce]
sse=cam1@http://{IP}/cam1

[scan]
extra_subnet=10.0.0.0/24
extra_subnet=192.168.1.5/32
`,
			check: func(t *testing.T, b Base) {
				if b.SSE["cam1"] != "http://{IP}/cam1" {
					t.Fatalf("sse announcement missing: %+v", b.SSE)
				}
				if len(b.ExtraCIDRs) != 2 || b.ExtraCIDRs[1] != "192.168.1.5/32" {
					t.Fatalf("extra CIDRs not accumulated: %+v", b.ExtraCIDRs)
				}
			},
		},
		{
			name: "slot sections with repeatable exec",
			content: `
[sync]
role=master
id=masterA

[sync.slot1]
name=primary
prefer_id=slaveA
exec={"path":"/sys/ping","args":["1.2.3.4"]}
exec={"path":"/sys/pong"}
`,
			check: func(t *testing.T, b Base) {
				if len(b.Slots) != 1 {
					t.Fatalf("expected 1 slot, got %d", len(b.Slots))
				}
				s := b.Slots[0]
				if s.Name != "primary" || s.PreferID != "slaveA" || len(s.Exec) != 2 {
					t.Fatalf("slot section not parsed: %+v", s)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "autod.ini")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}
			b, err := LoadINI(path)
			if err != nil {
				t.Fatalf("LoadINI: %v", err)
			}
			tt.check(t, b)
		})
	}
}

func TestLoadINIMissingFile(t *testing.T) {
	if _, err := LoadINI("/nonexistent/path.ini"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
