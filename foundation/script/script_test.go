package script_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/superfeelapi/goVoiceAgent/foundation/script"
)

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		t.Parallel()
		vars, err := script.Load("")
		if err != nil {
			t.Fatal(err)
		}
		if vars != script.Defaults() {
			t.Fatal("expected defaults")
		}
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		t.Parallel()
		vars, err := script.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if vars.Shop.AgentName != "Zen" {
			t.Fatalf("agent name = %q", vars.Shop.AgentName)
		}
	})

	t.Run("overrides merge onto defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "script.yaml")
		body := "recruiter:\n  candidate_name: Jordan\nshop:\n  company_name: Acme\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}

		vars, err := script.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if vars.Recruiter.CandidateName != "Jordan" {
			t.Errorf("candidate = %q", vars.Recruiter.CandidateName)
		}
		if vars.Shop.CompanyName != "Acme" {
			t.Errorf("company = %q", vars.Shop.CompanyName)
		}
		if vars.Shop.AgentName != "Zen" {
			t.Errorf("agent name lost: %q", vars.Shop.AgentName)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("shop: [unclosed"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := script.Load(path); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestFill(t *testing.T) {
	got := script.Fill("Hello {customer_name}, the {product_name} is yours.", map[string]string{
		"customer_name": "Jordan",
		"product_name":  "Linen Shirt",
	})
	want := "Hello Jordan, the Linen Shirt is yours."
	if got != want {
		t.Errorf("Fill = %q, want %q", got, want)
	}
}

func TestPrompts(t *testing.T) {
	vars := script.Defaults()

	if p := vars.Recruiter.Prompt(); !strings.Contains(p, vars.Recruiter.IntroGreeting) || !strings.Contains(p, "collect_data") {
		t.Error("recruiter prompt missing script fragments")
	}
	if p := vars.Shop.Prompt(); !strings.Contains(p, "verify_otp") || !strings.Contains(p, vars.Shop.OtpRequest) {
		t.Error("shop prompt missing script fragments")
	}

	shop := vars.Shop
	shop.CustomerName = "Jordan"
	shop.IntroGreeting = "Welcome to {company_name}, {customer_name}."
	if got := shop.Greeting(); got != "Welcome to Zenitheon, Jordan." {
		t.Errorf("shop greeting = %q", got)
	}
	if p := shop.Prompt(); !strings.Contains(p, "meet you, Jordan.") || !strings.Contains(p, "The {product_name} is a favorite") {
		t.Error("shop prompt should fill known placeholders only")
	}

	rec := vars.Recruiter
	rec.IntroGreeting = "Hi {candidate_name}, this is {recruiter_name}."
	if got := rec.Greeting(); got != "Hi {candidate_name}, this is Alex." {
		t.Errorf("recruiter greeting without candidate = %q", got)
	}
	rec.CandidateName = "Sam"
	if got := rec.Greeting(); got != "Hi Sam, this is Alex." {
		t.Errorf("recruiter greeting = %q", got)
	}

	got := script.OpeningInstruction("Hi there")
	if got != "Say exactly this phrase and nothing else: 'Hi there'." {
		t.Errorf("opening = %q", got)
	}
}
