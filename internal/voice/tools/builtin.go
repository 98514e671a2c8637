package tools

import "fmt"

// runBuiltin executes one of the four call-control tools. Each branch
// returns a fixed-shape result map mirroring what the agent-facing
// pipeline expects back as the tool's JSON result.
func runBuiltin(name string, args map[string]any) (map[string]any, bool) {
	switch name {
	case "end_call":
		reason, _ := args["reason"].(string)
		if reason == "" {
			reason = "completed"
		}
		return map[string]any{"action": "end_call", "reason": reason}, true

	case "transfer_call":
		toNumber, _ := args["to_number"].(string)
		department, _ := args["department"].(string)
		return map[string]any{"action": "transfer_call", "to": toNumber, "department": department}, true

	case "check_availability":
		return map[string]any{
			"available": true,
			"date":      args["date"],
			"slots":     []string{"09:00", "10:00", "14:00", "15:00"},
		}, true

	case "book_appointment":
		confirmation := fmt.Sprintf("Appointment for %v on %v at %v", args["name"], args["date"], args["time"])
		return map[string]any{"booked": true, "confirmation": confirmation}, true
	}

	return nil, false
}
