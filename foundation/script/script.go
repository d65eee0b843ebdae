// Package script holds the human-readable fragments the scripted agent speaks
// and builds the instructions handed to the language model.
package script

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Recruiter struct {
	RecruiterName   string `yaml:"recruiter_name"`
	RecruiterTitle  string `yaml:"recruiter_title"`
	CompanyName     string `yaml:"company_name"`
	CandidateName   string `yaml:"candidate_name"`
	IntroGreeting   string `yaml:"intro_greeting"`
	ReasonForCall   string `yaml:"reason_for_call"`
	DeclineQuestion string `yaml:"decline_question"`
	DeclineReason   string `yaml:"decline_with_reason"`
	DeclineNoReason string `yaml:"decline_no_reason"`
	EngagedClosing  string `yaml:"engaged_closing"`
}

type Shop struct {
	CompanyName            string `yaml:"company_name"`
	AgentName              string `yaml:"agent_name"`
	AgentTitle             string `yaml:"agent_title"`
	CustomerName           string `yaml:"customer_name"`
	IntroGreeting          string `yaml:"intro_greeting"`
	NeedsAssessment        string `yaml:"needs_assessment"`
	ProductSelectionPrompt string `yaml:"product_selection_prompt"`
	EmailRequest           string `yaml:"email_request"`
	OtpRequest             string `yaml:"otp_request"`
	OrderConfirmation      string `yaml:"order_confirmation"`
}

type Variables struct {
	Recruiter Recruiter `yaml:"recruiter"`
	Shop      Shop      `yaml:"shop"`
}

func Defaults() Variables {
	return Variables{
		Recruiter: Recruiter{
			RecruiterName:   "Alex",
			RecruiterTitle:  "talent acquisition specialist",
			CompanyName:     "Zenitheon",
			CandidateName:   "",
			IntroGreeting:   "Hi, this is Alex from Zenitheon. Am I speaking with the candidate who applied for the Sales Associate role?",
			ReasonForCall:   "I'm calling because your profile looks like a great fit for an open position with us. Would you be interested in hearing more about it?",
			DeclineQuestion: "I understand. May I ask what the main reason is?",
			DeclineReason:   "Thank you for sharing that, I'll make a note of it. Have a great day. Goodbye.",
			DeclineNoReason: "No problem at all, thank you for your time. Have a great day. Goodbye.",
			EngagedClosing:  "Wonderful. A member of our team will reach out with the details shortly. Thank you and goodbye.",
		},
		Shop: Shop{
			CompanyName:            "Zenitheon",
			AgentName:              "Zen",
			AgentTitle:             "personal AI shopping assistant",
			CustomerName:           "",
			IntroGreeting:          "Welcome to Zenitheon. I am Zen, your personal AI shopping assistant. May I know who I am speaking with today?",
			NeedsAssessment:        "It is a pleasure to meet you, {customer_name}. How can I help you upgrade your wardrobe today? Are you looking for something specific?",
			ProductSelectionPrompt: "Which one of these catches your eye?",
			EmailRequest:           "Great selection. The {product_name} is a favorite. To finalize your order and send you the generated Tracking ID, could you please share your email address?",
			OtpRequest:             "Thank you. I have sent a verification code to your email. Please provide the code to confirm your order.",
			OrderConfirmation:      "Thank you. I have confirmed your order. A confirmation email with your unique Tracking ID has just been sent to {email}. Thank you for shopping with Zenitheon. Have a stylish day!",
		},
	}
}

// Load overlays the YAML file at path on the defaults. Fields left out of the
// file keep their default value. An empty path or a missing file yields the
// defaults unchanged.
func Load(path string) (Variables, error) {
	vars := Defaults()
	if path == "" {
		return vars, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return vars, nil
	}
	if err != nil {
		return Variables{}, fmt.Errorf("script: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &vars); err != nil {
		return Variables{}, fmt.Errorf("script: parse %s: %w", path, err)
	}

	return vars, nil
}

// Fill replaces {key} placeholders in s.
func Fill(s string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// OpeningInstruction wraps a line so the model repeats it word for word.
func OpeningInstruction(line string) string {
	return fmt.Sprintf("Say exactly this phrase and nothing else: '%s'.", line)
}
