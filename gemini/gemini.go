// Package gemini implements [dispatch.Generator] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK. The Gemini API authenticates with
// its own API key, so the bearer token passed to Generate is ignored; pair
// the client with [dispatch.StaticToken].
package gemini

const defaultModel = "gemini-2.5-flash"
