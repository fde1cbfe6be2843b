package dto

// RegisterRequest registers students to a teacher, optionally within a class.
type RegisterRequest struct {
	Teacher  string   `json:"teacher" validate:"required,email"`
	Students []string `json:"students" validate:"required,min=1,dive,required,email"`
	Class    *string  `json:"class" validate:"omitempty,max=255"`
}

// CommonStudentsQuery lists the teachers whose common students are wanted.
type CommonStudentsQuery struct {
	Teachers []string `form:"teacher" validate:"required,min=1,dive,required,email"`
}

// CommonStudentsResponse is the body of a common students lookup.
type CommonStudentsResponse struct {
	Students []string `json:"students"`
}

// SuspendRequest suspends the student with the given email.
type SuspendRequest struct {
	Student string `json:"student" validate:"required,email"`
}

// RecipientsRequest asks who should receive a notification.
type RecipientsRequest struct {
	Teacher      string `json:"teacher" validate:"required,email"`
	Notification string `json:"notification" validate:"required"`
}

// RecipientsResponse is the body of a recipients lookup.
type RecipientsResponse struct {
	Recipients []string `json:"recipients"`
}
