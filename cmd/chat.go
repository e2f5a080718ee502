package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/ecamozu/career-agent/internal/agent"
	"github.com/ecamozu/career-agent/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptInterviewInvitation = "Interview invitation"
	PromptTechnicalQuestion   = "Technical background question"
	PromptTrickyQuestions     = "Salary, legal, and out-of-expertise questions"
	PromptCustomMessage       = "Type a custom message"
	PromptExit                = "Exit"
)

var errExit = errors.New("exit requested")

// Sample employer messages for trying the agent without a real inbox.
var sampleMessages = map[string]string{
	PromptInterviewInvitation: "Dear Egemen,\n\n" +
		"We reviewed your profile and were impressed by your full-stack development experience. " +
		"We'd like to invite you for a technical interview for our Junior Full-Stack Developer position " +
		"at our Istanbul office. The role involves working with Angular and Spring Boot, which aligns " +
		"with your skills. Would you be available next week for a 45-minute video call?\n\n" +
		"Best regards,\nAhmet Yıldız\nHR Manager, TechCorp Istanbul",
	PromptTechnicalQuestion: "Hi Egemen,\n\n" +
		"We're evaluating candidates for our backend team. Could you describe your experience with " +
		"Spring Boot and RESTful API design? Specifically:\n" +
		"1. Have you worked with microservices architecture?\n" +
		"2. What database technologies have you used?\n" +
		"3. Do you have experience with Docker and CI/CD pipelines?\n\n" +
		"Thanks,\nMehmet Kaya\nTech Lead, InnovateTech",
	PromptTrickyQuestions: "Hello Egemen,\n\n" +
		"We have a senior position that might interest you. Before we proceed:\n" +
		"1. What is your minimum acceptable salary in Turkish Lira?\n" +
		"2. Are you willing to sign a 2-year non-compete clause?\n" +
		"3. Can you demonstrate expertise in Rust and low-level systems programming?\n" +
		"4. We need you to start within 2 weeks - is that possible?\n\n" +
		"Regards,\nAyşe Demir\nCTO, CryptoStartup",
}

var scenarioPrompt = promptui.Select{
	Label: "Pick an employer message",
	Items: []string{PromptInterviewInvitation, PromptTechnicalQuestion, PromptTrickyQuestions, PromptCustomMessage, PromptExit},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Process employer messages interactively",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chat(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the career-agent chat", zap.String("version", version))

	careerAgent, prof, err := buildAgent(ctx, config, logger)
	if err != nil {
		logger.Fatal("assembling the agent", zap.Error(err))
	}

	logger.Info("profile loaded", zap.String("candidate", prof.Name))

	for {
		if err := chatOnce(ctx, careerAgent); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func chatOnce(ctx context.Context, careerAgent *agent.Agent) error {
	_, choice, err := scenarioPrompt.Run()
	if err != nil {
		return errExit
	}

	message, err := resolveMessage(choice)
	if err != nil {
		return err
	}

	fmt.Printf("\nEmployer message:\n%s\n\n", message)

	result, err := careerAgent.Process(ctx, message)
	if err != nil {
		return fmt.Errorf("processing message: %w", err)
	}

	printResult(result)
	return nil
}

func resolveMessage(choice string) (string, error) {
	switch choice {
	case PromptExit:
		return "", errExit
	case PromptCustomMessage:
		input := promptui.Prompt{
			Label: "Employer message",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("message must not be empty")
				}
				return nil
			},
		}
		return input.Run()
	default:
		message, ok := sampleMessages[choice]
		if !ok {
			return "", fmt.Errorf("invalid choice: %s", choice)
		}
		return message, nil
	}
}

func printResult(result *agent.Result) {
	fmt.Printf("Reply:\n%s\n\n", result.Reply)

	if result.Evaluation != nil {
		eval := result.Evaluation
		fmt.Printf("Score:     %s %.1f/10\n", scoreBar(eval.Score), eval.Score)
		fmt.Printf("Approved:  %v\n", eval.Approved)
		fmt.Printf("Feedback:  %s\n", eval.Feedback)
	}

	fmt.Printf("Outcome:   %s\n", result.Outcome)
	fmt.Printf("Revisions: %d\n", result.Revisions)

	if result.Flagged {
		fmt.Println("Flagged questions:")
		for _, flag := range result.Flags {
			fmt.Printf("  - %s (%s, confidence %.0f%%)\n", flag.Question, flag.Reason, flag.Confidence*100)
		}
	}
	fmt.Println()
}

// scoreBar renders a 10-slot bar, one filled block per point.
func scoreBar(score float64) string {
	filled := int(math.Round(score))
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
