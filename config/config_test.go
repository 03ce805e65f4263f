package config

import "testing"

func TestApplyDefaultsFillsUnsetEngineKeys(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.Engine.FixUnassignedMinPercent != 99 {
		t.Errorf("expected default FixUnassignedMinPercent 99, got %v", cfg.Engine.FixUnassignedMinPercent)
	}
	if cfg.Engine.FixUnassignedComparatorSubject != "TotalPopulation" {
		t.Errorf("expected default comparator subject, got %q", cfg.Engine.FixUnassignedComparatorSubject)
	}
	if cfg.Engine.SimplifyThresholdDefault != 100 {
		t.Errorf("expected default simplify threshold 100, got %v", cfg.Engine.SimplifyThresholdDefault)
	}
	if cfg.Engine.DefaultSRID != 3785 {
		t.Errorf("expected default SRID 3785, got %v", cfg.Engine.DefaultSRID)
	}
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{Engine: EngineConfig{MaxUndosDuringEdit: 5, FixUnassignedMinPercent: 50}}
	applyDefaults(cfg)

	if cfg.Engine.MaxUndosDuringEdit != 5 {
		t.Errorf("expected explicit MaxUndosDuringEdit preserved, got %v", cfg.Engine.MaxUndosDuringEdit)
	}
	if cfg.Engine.FixUnassignedMinPercent != 50 {
		t.Errorf("expected explicit FixUnassignedMinPercent preserved, got %v", cfg.Engine.FixUnassignedMinPercent)
	}
}

func TestDSNAndRedisAddrFormatting(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"},
		Redis:    RedisConfig{Host: "cache", Port: 6379},
	}
	if got := cfg.DSN(); got != "host=db port=5432 user=u password=p dbname=d sslmode=disable" {
		t.Errorf("unexpected DSN: %q", got)
	}
	if got := cfg.RedisAddr(); got != "cache:6379" {
		t.Errorf("unexpected redis addr: %q", got)
	}
}
