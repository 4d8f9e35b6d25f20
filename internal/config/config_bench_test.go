package config

import (
	"os"
	"path/filepath"
	"testing"
)

// BenchmarkLoad benchmarks config loading
func BenchmarkLoad(b *testing.B) {
	// Create a temporary config file
	tempDir := b.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	configContent := `
[search]
engines = ["google", "arxiv"]

[scheduler]
chunk_size = 10
max_rounds_per_run = 2

[query]
top_n = 10
keywords = ["retrieval augmented generation"]
venues = ["ACL", "EMNLP", "NAACL"]
degree_levels = ["PhD"]

[models.main]
base_url = "https://api.example.com/v1"
model_name = "test-model"
max_output_tokens = 512
context_size = 8192
rate_limit_per_minute = 120
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := Load(configPath)
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkValidate benchmarks config validation
func BenchmarkValidate(b *testing.B) {
	cfg := validConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cfg.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkValidateInputs benchmarks input validation
func BenchmarkValidateInputs(b *testing.B) {
	cfg := validConfig()
	cfg.Query.Keywords = []string{"graph neural networks", "molecule generation"}
	cfg.Query.Venues = []string{"NeurIPS", "ICML", "ICLR"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cfg.ValidateInputs(); err != nil {
			b.Fatal(err)
		}
	}
}
