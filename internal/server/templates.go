package server

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
)

//go:embed templates/authorization.html
var authorizationPageTemplateHTML string

var authorizationPageTemplate = template.Must(template.New("authorization").Parse(authorizationPageTemplateHTML))

// AuthorizationPageData is rendered into the callback popup. The script fields
// hold JSON literals produced by newAuthorizationPageData.
type AuthorizationPageData struct {
	Status       string
	Details      string
	TargetOrigin template.JS
	Announce     template.JS
	Message      template.JS
}

// jsLiteral encodes v as a JSON value, which is also a valid JavaScript
// expression. encoding/json escapes <, > and & so the result cannot end the
// surrounding script element.
func jsLiteral(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

func newAuthorizationPageData(origin, announce, message, status, details string) (AuthorizationPageData, error) {
	data := AuthorizationPageData{Status: status, Details: details}

	var err error
	if data.TargetOrigin, err = jsLiteral(origin); err != nil {
		return data, fmt.Errorf("encoding target origin: %w", err)
	}
	if data.Announce, err = jsLiteral(announce); err != nil {
		return data, fmt.Errorf("encoding announce message: %w", err)
	}
	if data.Message, err = jsLiteral(message); err != nil {
		return data, fmt.Errorf("encoding message: %w", err)
	}
	return data, nil
}
