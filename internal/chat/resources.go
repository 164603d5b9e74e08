package chat

// Helpline is one entry in the safety resources pushed to a user in crisis.
type Helpline struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

var helplines = []Helpline{
	{Name: "iCall", Number: "9152987821"},
	{Name: "KIRAN Mental Health Helpline", Number: "1800-599-0019"},
	{Name: "Emergency Services", Number: "112"},
}

const safetyMessage = "You are not alone. If you are in immediate danger, please reach out to one of these helplines right now. A counselor on this platform has also been notified."
