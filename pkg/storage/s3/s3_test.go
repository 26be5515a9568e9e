package s3

import "testing"

func TestClientKey(t *testing.T) {
	tests := []struct {
		prefix string
		name   string
		want   string
	}{
		{"", "trials.parquet", "trials.parquet"},
		{"datasets/", "trials.parquet", "datasets/trials.parquet"},
		{"datasets/", "/trials.parquet", "datasets/trials.parquet"},
	}

	for _, tt := range tests {
		c := &Client{prefix: tt.prefix}
		if got := c.Key(tt.name); got != tt.want {
			t.Errorf("Key(%q) with prefix %q = %q, want %q", tt.name, tt.prefix, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("lab-gait-data", "eu-west-1")
	if cfg.Bucket != "lab-gait-data" || cfg.Region != "eu-west-1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.PartSize < minPartSize {
		t.Errorf("part size %d below the S3 minimum", cfg.PartSize)
	}
}
