package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "grading:grading@tcp(127.0.0.1:3306)/grading?parseTime=true"
storage:
  type: filesystem
  filesystem:
    root: /tmp/blobs
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Worker.PollInterval != time.Second || cfg.Worker.AttemptPollInterval != time.Second {
		t.Fatalf("worker = %+v", cfg.Worker)
	}
	if cfg.Worker.ScorerCommand != "python3" {
		t.Fatalf("scorer command = %q", cfg.Worker.ScorerCommand)
	}
	if cfg.Logger.Level != "info" {
		t.Fatalf("logger = %+v", cfg.Logger)
	}
	if cfg.Redis != nil || cfg.Events != nil {
		t.Fatal("optional sections should default to nil")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
database:
  dsn: "grading:grading@tcp(db:3306)/grading?parseTime=true"
storage:
  type: minio
  minio:
    endpoint: minio:9000
    accessKey: grading
    secretKey: secret
    bucket: grading
redis:
  addr: redis:6379
events:
  topic: grading.attempts
  kafka:
    brokers: [kafka:9092]
worker:
  pollInterval: 250ms
  attemptPollInterval: 100ms
  scoringTmp: /srv/scoring
  seccompProfile: /etc/scorer-seccomp.json
ops:
  addr: ":8086"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Type != "minio" || cfg.Storage.MinIO.Bucket != "grading" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Worker.PollInterval != 250*time.Millisecond {
		t.Fatalf("poll interval = %v", cfg.Worker.PollInterval)
	}
	if cfg.Worker.SeccompProfile != "/etc/scorer-seccomp.json" {
		t.Fatalf("seccomp profile = %q", cfg.Worker.SeccompProfile)
	}
	if cfg.Redis == nil || cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("redis = %+v", cfg.Redis)
	}
	if cfg.Events == nil || cfg.Events.Topic != "grading.attempts" {
		t.Fatalf("events = %+v", cfg.Events)
	}
	if cfg.Ops.Addr != ":8086" {
		t.Fatalf("ops = %+v", cfg.Ops)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"missing dsn": `
storage:
  type: filesystem
  filesystem:
    root: /tmp/blobs
`,
		"bad storage type": `
database:
  dsn: "x"
storage:
  type: s3
`,
		"events without brokers": `
database:
  dsn: "x"
storage:
  type: filesystem
  filesystem:
    root: /tmp/blobs
events:
  topic: grading.attempts
`,
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: config accepted", name)
		}
	}
}
