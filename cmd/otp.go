package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/otp"
)

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Issue and verify one-time codes",
	Long: `Issue and verify one-time codes for enrolled identities.

The in-memory backend does not outlive the process, so these commands are
only useful with OTP_BACKEND=redis or OTP_BACKEND=postgres.`,
}

var otpIssueCmd = &cobra.Command{
	Use:   "issue <key>",
	Short: "Issue a one-time code for an enrolled identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runOTPIssue,
}

var otpVerifyCmd = &cobra.Command{
	Use:   "verify <key> <code>",
	Short: "Verify and consume a one-time code",
	Args:  cobra.ExactArgs(2),
	RunE:  runOTPVerify,
}

func init() {
	rootCmd.AddCommand(otpCmd)
	otpCmd.AddCommand(otpIssueCmd, otpVerifyCmd)

	otpIssueCmd.Flags().Bool("json", false, "Output as JSON")
}

// openOTPService wires the identity store and code store. The returned func
// closes both.
func openOTPService(ctx context.Context, cfg *config.Config) (*otp.Service, func(), error) {
	if cfg.OTPBackend() == "memory" {
		return nil, nil, errors.New("one-time codes need a shared store, set OTP_BACKEND or REDIS_ADDR")
	}
	repo, err := openIdentityStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	codes, closeCodes, err := newCodeStore(ctx, cfg)
	if err != nil {
		closeIdentityStore()
		return nil, nil, err
	}
	return otp.NewService(codes, repo, cfg.OTP.TTL), func() {
		closeCodes()
		closeIdentityStore()
	}, nil
}

func runOTPIssue(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	service, closeAll, err := openOTPService(ctx, config.Load())
	if err != nil {
		return err
	}
	defer closeAll()

	result, err := service.Issue(ctx, args[0])
	if err != nil {
		return fmt.Errorf("issuing code: %w", err)
	}
	if result.Outcome != otp.OutcomeIssued {
		return fmt.Errorf("identity %s is not enrolled", result.Key)
	}

	if jsonOutput {
		return outputJSON(map[string]any{
			"identity_key": result.Key,
			"code":         result.Code,
			"expires_at":   result.ExpiresAt,
		})
	}
	fmt.Printf("Code for %s: %s (expires %s)\n", result.Key, result.Code, result.ExpiresAt.Format("15:04:05"))
	return nil
}

func runOTPVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	service, closeAll, err := openOTPService(ctx, config.Load())
	if err != nil {
		return err
	}
	defer closeAll()

	outcome, err := service.Verify(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("verifying code: %w", err)
	}
	if outcome != otp.OutcomeVerified {
		return errors.New("invalid or expired code")
	}
	fmt.Println("Code verified")
	return nil
}
