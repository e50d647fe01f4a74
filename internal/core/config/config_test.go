package config

import "testing"

func TestLoadFileAndDefaults(t *testing.T) {
	c, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", c.App.HTTP.Port)
	}
	if !c.App.IsProduction() {
		t.Errorf("env = %q, want production", c.App.Env)
	}
	if c.JWT.AccessTokenTTLMin != 15 || c.JWT.SignupTTLHours != 48 || c.JWT.ResetTTLMin != 60 {
		t.Errorf("ttl defaults not applied: %+v", c.JWT)
	}
	if len(c.CORS.AllowedOrigins) != 1 || c.CORS.AllowedOrigins[0] != "https://club.example" {
		t.Errorf("origins = %v", c.CORS.AllowedOrigins)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLegacyEnvNames(t *testing.T) {
	t.Setenv("SECRET_KEY_ACCESS_TOKEN", "from-env")
	t.Setenv("EMAIL_PORT", "2525")
	t.Setenv("FRONTEND_URL", "https://front.example")

	c, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.JWT.AccessSecret != "from-env" {
		t.Errorf("access secret = %q", c.JWT.AccessSecret)
	}
	if c.Mail.Port != 2525 {
		t.Errorf("mail port = %d", c.Mail.Port)
	}
	if c.App.FrontendURL != "https://front.example" {
		t.Errorf("frontend = %q", c.App.FrontendURL)
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	c, err := Load("testdata/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.HTTP.Port != 8080 {
		t.Errorf("port = %d, want default 8080", c.App.HTTP.Port)
	}
}

func TestValidateRejectsSharedSecrets(t *testing.T) {
	c := &Config{
		JWT: JWT{AccessSecret: "x", RefreshSecret: "x", SignupSecret: "y", ResetSecret: "z"},
		DB:  DB{Driver: "mysql"},
	}
	if err := c.Validate(); err == nil {
		t.Fatal("expected shared secret error")
	}
	c.JWT.RefreshSecret = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected empty secret error")
	}
}
