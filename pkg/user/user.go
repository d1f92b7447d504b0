package user

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Status      Status
	Settings    Settings
}

type Settings struct {
	// Timezone is an IANA name used for local reminder scheduling.
	Timezone string
	// MonthStartDate is the day (1..28) on which the user's monthly cycle begins.
	MonthStartDate int
	Currency       string
	// PushToken is the device registration token, empty when push is not set up.
	PushToken string
}
