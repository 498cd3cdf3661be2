package notify

import (
	"fmt"
	"net/smtp"
)

// Mailer sends transactional mail over plain SMTP. Every send is a single
// attempt; callers treat failures as log-only.
type Mailer struct {
	From     string
	Password string
	Host     string
	Port     string
	AppURL   string
}

func NewMailer(from, password, host, port, appURL string) *Mailer {
	return &Mailer{From: from, Password: password, Host: host, Port: port, AppURL: appURL}
}

func (m *Mailer) send(to string, subject string, body string) error {
	if m.Host == "" {
		return fmt.Errorf("smtp not configured")
	}
	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + m.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	return smtp.SendMail(m.Host+":"+m.Port, auth, m.From, []string{to}, message)
}

func (m *Mailer) SendVerificationEmail(to string, token string) error {
	link := fmt.Sprintf("%s/verify?token=%s", m.AppURL, token)
	body := fmt.Sprintf("Clique no link para verificar sua conta:\n\n%s", link)
	return m.send(to, "Verifique sua conta", body)
}

func (m *Mailer) SendPasswordResetEmail(to string, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.AppURL, token)
	body := fmt.Sprintf("Para redefinir sua senha, acesse:\n\n%s", link)
	return m.send(to, "Redefinição de senha", body)
}

func (m *Mailer) SendPaymentConfirmation(to string, planType string, amountCents int64) error {
	body := fmt.Sprintf(
		"Recebemos seu pagamento de R$ %.2f.\n\nSeu plano %s está ativo. Bons fretes!",
		float64(amountCents)/100.0, planType)
	return m.send(to, "Pagamento confirmado", body)
}

func (m *Mailer) SendSubscriptionCanceled(to string) error {
	body := "Sua assinatura foi cancelada e o valor estornado.\n\nSe isso foi um engano, fale com nosso suporte."
	return m.send(to, "Assinatura cancelada", body)
}
