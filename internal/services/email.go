package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

type EmailService struct {
	host        string
	port        string
	user        string
	pass        string
	from        string
	frontendURL string
	devMode     bool
}

func NewEmailService(host, port, user, pass, from, frontendURL string) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	}
	return &EmailService{
		host:        host,
		port:        port,
		user:        user,
		pass:        pass,
		from:        from,
		frontendURL: frontendURL,
		devMode:     devMode,
	}
}

func (s *EmailService) SendPasswordResetEmail(to, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	body := emailLayout("Reset your password", fmt.Sprintf(`
      <p style="color: #555; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">
        Someone asked to reset the password of your Tomodoro account. Use the button below to choose a new one.
      </p>
      <a href="%s" style="display: inline-block; background: #ff6b6b; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
        Choose a new password
      </a>
      <p style="color: #999; font-size: 12px; margin: 24px 0 0;">
        The link expires in 1 hour. If you did not ask for it, ignore this email.
      </p>`, resetURL))

	return s.sendHTML(to, "Reset your Tomodoro password", body)
}

func (s *EmailService) SendAccountDeletedEmail(to string, sessions, intervals int) error {
	body := emailLayout("Your account was deleted", fmt.Sprintf(`
      <p style="color: #555; font-size: 14px; line-height: 1.6; margin: 0;">
        Your Tomodoro account and its history (%d sessions, %d focus intervals) have been removed.
      </p>`, sessions, intervals))

	return s.sendHTML(to, "Your Tomodoro account was deleted", body)
}

func emailLayout(heading, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 0; background-color: #fff5f5;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; overflow: hidden;">
    <div style="background: #ff6b6b; padding: 24px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 22px;">🍅 Tomodoro</h1>
    </div>
    <div style="padding: 32px;">
      <h2 style="margin: 0 0 16px; font-size: 18px; color: #222;">%s</h2>%s
    </div>
  </div>
</body>
</html>`, heading, content)
}

func (s *EmailService) sendHTML(to, subject, htmlBody string) error {
	if s.devMode {
		log.Printf("📧 [DEV EMAIL] To: %s | Subject: %s", to, subject)
		log.Printf("📧 Body:\n%s", htmlBody)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}
