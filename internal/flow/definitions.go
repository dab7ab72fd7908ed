package flow

// Flow names as stored in FlowSession.Flow.
const (
	FlowAuth       = "auth"
	FlowGetStarted = "get_started"
	FlowContact    = "contact"
	FlowOrder      = "order"
)

// AuthFlow collects an email and then a verification code. The code step
// carries no validator here: code shape and matching are enforced by the
// verification service, not by the wizard.
func AuthFlow(complete CompleteFunc) Definition {
	return Definition{
		Name: FlowAuth,
		Steps: []StepDefinition{
			{
				Kind:     StepInput,
				Name:     "email",
				Fields:   []string{"email"},
				Validate: Email("email"),
			},
			{
				Kind:     StepConfirmation,
				Name:     "code",
				Fields:   []string{"code"},
				Validate: NonEmpty("code", "Enter the code we sent you"),
			},
		},
		Complete: complete,
	}
}

// GetStartedFlow walks a merchant from platform choice to a reachable
// store URL and contact email.
func GetStartedFlow(complete CompleteFunc) Definition {
	return Definition{
		Name: FlowGetStarted,
		Steps: []StepDefinition{
			{
				Kind:     StepChoice,
				Name:     "platform",
				Fields:   []string{"platform"},
				Validate: NonEmpty("platform", "Choose your platform"),
			},
			{
				Kind:     StepInput,
				Name:     "store",
				Fields:   []string{"store_url"},
				Validate: StoreURL("store_url"),
			},
			{
				Kind:     StepInput,
				Name:     "contact",
				Fields:   []string{"email"},
				Validate: Email("email"),
			},
		},
		Complete: complete,
	}
}

// ContactFlow is the lead-intake form. Budget and message are optional
// and never block advancing.
func ContactFlow(complete CompleteFunc) Definition {
	return Definition{
		Name: FlowContact,
		Steps: []StepDefinition{
			{
				Kind:     StepInput,
				Name:     "identity",
				Fields:   []string{"name", "email"},
				Validate: All(NonEmpty("name", "Name is required"), Email("email")),
			},
			{
				Kind:     StepInput,
				Name:     "details",
				Fields:   []string{"budget", "message"},
				Optional: true,
				Validate: Optional(),
			},
			{
				Kind:   StepConfirmation,
				Name:   "review",
				Fields: nil,
			},
		},
		Complete: complete,
	}
}

// OrderFlow drives the improve-store order modal: pick a package, verify
// the email, optionally attach a collaborator code, then check out.
func OrderFlow(complete CompleteFunc) Definition {
	return Definition{
		Name: FlowOrder,
		Steps: []StepDefinition{
			{
				Kind:     StepChoice,
				Name:     "package",
				Fields:   []string{"service_id", "package_name"},
				Validate: All(NonEmpty("service_id", "Pick a service"), NonEmpty("package_name", "Pick a package")),
			},
			{
				Kind:     StepInput,
				Name:     "store",
				Fields:   []string{"store_url"},
				Validate: StoreURL("store_url"),
			},
			{
				Kind:     StepInput,
				Name:     "email",
				Fields:   []string{"email"},
				Validate: Email("email"),
			},
			{
				Kind:     StepInput,
				Name:     "collaborator",
				Fields:   []string{"collaborator_code"},
				Optional: true,
				Validate: Optional(),
			},
			{
				Kind:   StepConfirmation,
				Name:   "checkout",
				Fields: nil,
			},
		},
		Complete: complete,
	}
}
