package validation

var (
	requiredRule   = Named("required")
	emailRule      = Named("email")
	noScriptRule   = Named("noScript")
	passwordRule   = Named("password")
	phoneRule      = Named("phone")
	passwordsMatch = Named("passwordMatch")
)

func RegisterSchema() FormSchema {
	return FormSchema{
		"firstName":       {requiredRule, MinLength(2), MaxLength(50), noScriptRule},
		"lastName":        {requiredRule, MinLength(2), MaxLength(50), noScriptRule},
		"email":           {requiredRule, emailRule},
		"password":        {requiredRule, passwordRule},
		"confirmPassword": {requiredRule, passwordsMatch},
		"phone":           {phoneRule},
		"role":            {requiredRule},
	}
}

func LoginSchema() FormSchema {
	return FormSchema{
		"email":    {requiredRule, emailRule},
		"password": {requiredRule},
	}
}

func ProfileSchema() FormSchema {
	return FormSchema{
		"firstName": {requiredRule, MinLength(2), noScriptRule},
		"lastName":  {requiredRule, MinLength(2), noScriptRule},
		"email":     {requiredRule, emailRule},
		"phone":     {phoneRule},
	}
}

// ServiceSchema covers a provider's service offer. Hourly rates are in the
// smallest currency unit.
func ServiceSchema() FormSchema {
	return FormSchema{
		"name":        {requiredRule, MinLength(3), MaxLength(100), noScriptRule},
		"description": {requiredRule, MinLength(10), noScriptRule},
		"category":    {requiredRule},
		"hourlyRate":  {requiredRule, Min(1000), Max(500000)},
	}
}

func ReservationSchema() FormSchema {
	return FormSchema{
		"serviceId":     {requiredRule},
		"scheduledDate": {requiredRule},
		"hours":         {requiredRule, Min(1), Max(24)},
	}
}
