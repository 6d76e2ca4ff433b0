package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.TelegramToken = "123:abc"
	cfg.ModeratorChatID = 42
	cfg.YouTubeAPIKey = "key"
	return cfg
}

func TestValidate_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing telegram token", func(c *Config) { c.TelegramToken = "" }},
		{"missing moderator chat", func(c *Config) { c.ModeratorChatID = 0 }},
		{"missing api key", func(c *Config) { c.YouTubeAPIKey = "" }},
		{"missing generator endpoint", func(c *Config) { c.GeneratorEndpoint = "" }},
		{"zero interval", func(c *Config) { c.CheckIntervalHours = 0 }},
		{"bad start date", func(c *Config) { c.StartDate = "14-03-2026" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() on complete config = %v", err)
	}
}

func TestDayWindow_ExplicitStartDate(t *testing.T) {
	cfg := validConfig()
	cfg.StartDate = "2026-03-14"

	begin, end, err := cfg.DayWindow()
	if err != nil {
		t.Fatalf("DayWindow() error = %v", err)
	}

	wantBegin := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !begin.Equal(wantBegin) {
		t.Errorf("begin = %v, want %v", begin, wantBegin)
	}
	if want := wantBegin.Add(24*time.Hour - time.Microsecond); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
	// The window must stay inside the calendar day.
	if !end.Before(wantBegin.Add(24 * time.Hour)) {
		t.Error("end crosses into the next day")
	}
}

func TestDayWindow_DefaultsToToday(t *testing.T) {
	cfg := validConfig()

	begin, _, err := cfg.DayWindow()
	if err != nil {
		t.Fatalf("DayWindow() error = %v", err)
	}

	now := time.Now().UTC()
	if begin.Year() != now.Year() || begin.YearDay() != now.YearDay() {
		t.Errorf("begin = %v, want today's UTC midnight", begin)
	}
	if begin.Hour() != 0 || begin.Minute() != 0 || begin.Second() != 0 {
		t.Errorf("begin = %v, want midnight", begin)
	}
}

func TestCheckInterval(t *testing.T) {
	cfg := validConfig()
	cfg.CheckIntervalHours = 3
	if got := cfg.CheckInterval(); got != 3*time.Hour {
		t.Errorf("CheckInterval() = %v, want 3h", got)
	}
}
