// Package prompts renders the fixed text surfaces of the agent: the
// system prompt fed to the language model, the supervisor escalation
// alert, and the caller follow-up message.
package prompts

import (
	"fmt"
	"strings"
)

// BusinessInfo carries the static business facts embedded in every
// system prompt.
type BusinessInfo struct {
	Name     string
	Hours    string
	Phone    string
	Services string
	Pricing  string
	Location string
}

// SystemPrompt builds the agent's system instructions from business
// facts and the rendered learned-knowledge block.
func SystemPrompt(info BusinessInfo, knowledgeContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a professional AI receptionist for %s.\n\n", info.Name)
	b.WriteString("BUSINESS INFORMATION:\n")
	fmt.Fprintf(&b, "- Name: %s\n", info.Name)
	fmt.Fprintf(&b, "- Hours: %s\n", info.Hours)
	fmt.Fprintf(&b, "- Phone: %s\n", info.Phone)
	fmt.Fprintf(&b, "- Services: %s\n", info.Services)
	fmt.Fprintf(&b, "- Pricing: %s\n", info.Pricing)
	fmt.Fprintf(&b, "- Location: %s\n\n", info.Location)

	if knowledgeContext != "" {
		b.WriteString(knowledgeContext)
		b.WriteString("\n\n")
	}

	b.WriteString(`YOUR ROLE:
You are a friendly, professional receptionist. Greet callers warmly,
answer questions about services, pricing, hours, and location, and
handle general inquiries.

CRITICAL INSTRUCTIONS:
- Be warm, professional, and concise
- If you know the answer from the business information or learned knowledge above, answer confidently
- If you DON'T know something, DO NOT make it up or guess
- If uncertain, say you will check with your manager and get back to the caller
- Keep responses under 3 sentences when possible
- Never hallucinate information`)

	return b.String()
}

// EscalationAlert renders the supervisor notification for a new help
// request.
func EscalationAlert(question, callerContact string) string {
	return fmt.Sprintf(`New Help Request

Question: %s

Caller: %s

The agent needs your help to answer this question. Please respond through the supervisor dashboard.`, question, callerContact)
}

// FollowUp renders the message sent back to the caller once their
// question has been answered by a supervisor.
func FollowUp(question, answer string) string {
	return fmt.Sprintf(`Hi! Thanks for your patience. Here's the answer to your question:

Question: %s

Answer: %s

Is there anything else I can help you with? Feel free to call us back at any time!`, question, answer)
}

// EscalationPromise is spoken to the caller when their question is
// handed to a supervisor.
const EscalationPromise = "That's a great question. Let me check with my manager and get back to you right away. I'll text you the answer within a few minutes."
