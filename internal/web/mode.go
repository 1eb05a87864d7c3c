package web

// Mode selects which credential the sign-in form asks for.
type Mode int

const (
	ModePassword Mode = iota
	ModeOTP
)

// ParseMode reads the "mode" query or form value. Anything but "otp"
// means password.
func ParseMode(s string) Mode {
	if s == "otp" {
		return ModeOTP
	}
	return ModePassword
}

func (m Mode) String() string {
	if m == ModeOTP {
		return "otp"
	}
	return "password"
}
