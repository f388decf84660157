package contact

// ContactModel is a contact form submission. Form and JSON bodies share field names.
type ContactModel struct {
	Name      string `json:"name" form:"name" validate:"required,max=100"`
	Email     string `json:"email" form:"email" validate:"required,email,max=254"`
	Message   string `json:"message" form:"message" validate:"required,max=5000"`
	Recaptcha string `json:"g-recaptcha-response" form:"g-recaptcha-response" validate:"recaptcha"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
