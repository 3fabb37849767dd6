package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/kalasi/darasa/core"
)

type consoleService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool

	mu           sync.Mutex
	sentMessages []core.EmailMessage
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) *consoleService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
	}
}

// NewConsoleServiceMock records messages without printing; for tests.
func NewConsoleServiceMock(conf *core.Config) *consoleService {
	svc := NewConsoleService(conf)
	svc.disableOutput = true
	return svc
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

// SentMessages returns a copy of everything sent so far.
func (svc *consoleService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sent := make([]core.EmailMessage, len(svc.sentMessages))
	copy(sent, svc.sentMessages)
	return sent
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) {
	if !(msg.HasRecipients() && msg.HasContent()) {
		return
	}
	if !svc.disableOutput {
		svc.print(*msg)
	}
	svc.mu.Lock()
	svc.sentMessages = append(svc.sentMessages, *msg)
	svc.mu.Unlock()
}

func (svc *consoleService) print(msg core.EmailMessage) {
	body := new(strings.Builder)

	fmt.Fprintf(body, "From: %s\n", svc.defaultFromEmail.String())
	fmt.Fprintf(body, "To: %s\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		fmt.Fprintf(body, "Cc: %s\n", joinAddresses(msg.Cc))
	}
	fmt.Fprintf(body, "Date: %s\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(body, "Subject: %s%s\n\n", svc.subjPrefix, msg.Subject)
	body.WriteString(msg.BodyStr)

	fmt.Printf("%s\n%s\n%s\n", strings.Repeat("-", 79), body.String(), strings.Repeat("-", 79))
}

func joinAddresses(addrs []mail.Address) string {
	strs := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		strs = append(strs, addr.String())
	}
	return strings.Join(strs, ", ")
}
