package recon

import (
	"log"
)

// Side effects are decoupled from the entitlement transition: the engine
// returns intents, the dispatcher delivers them after commit. One attempt,
// failures are logged and never roll anything back.

type IntentKind string

const (
	IntentPaymentConfirmed     IntentKind = "payment_confirmed"
	IntentSubscriptionCanceled IntentKind = "subscription_canceled"
)

type Intent struct {
	Kind        IntentKind
	UserID      uint
	Email       string
	Phone       string
	PlanType    string
	AmountCents int64
}

type Mailer interface {
	SendPaymentConfirmation(to string, planType string, amountCents int64) error
	SendSubscriptionCanceled(to string) error
}

type WhatsAppSender interface {
	SendText(phone string, message string) error
}

type Dispatcher struct {
	Mailer   Mailer
	WhatsApp WhatsAppSender
}

// Dispatch fires every intent in its own goroutine and returns immediately.
func (d *Dispatcher) Dispatch(intents []Intent) {
	if d == nil {
		return
	}
	for _, intent := range intents {
		go d.deliver(intent)
	}
}

func (d *Dispatcher) deliver(intent Intent) {
	switch intent.Kind {
	case IntentPaymentConfirmed:
		if d.Mailer != nil && intent.Email != "" {
			if err := d.Mailer.SendPaymentConfirmation(intent.Email, intent.PlanType, intent.AmountCents); err != nil {
				log.Printf("⚠️ confirmation email failed for user %d: %v", intent.UserID, err)
			}
		}
		if d.WhatsApp != nil && intent.Phone != "" {
			if err := d.WhatsApp.SendText(intent.Phone, "Pagamento confirmado! Sua assinatura está ativa. 🚚"); err != nil {
				log.Printf("⚠️ whatsapp notice failed for user %d: %v", intent.UserID, err)
			}
		}
	case IntentSubscriptionCanceled:
		if d.Mailer != nil && intent.Email != "" {
			if err := d.Mailer.SendSubscriptionCanceled(intent.Email); err != nil {
				log.Printf("⚠️ cancellation email failed for user %d: %v", intent.UserID, err)
			}
		}
		if d.WhatsApp != nil && intent.Phone != "" {
			if err := d.WhatsApp.SendText(intent.Phone, "Sua assinatura foi cancelada e o valor estornado."); err != nil {
				log.Printf("⚠️ whatsapp notice failed for user %d: %v", intent.UserID, err)
			}
		}
	}
}
