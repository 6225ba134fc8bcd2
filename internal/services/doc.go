// Package services holds the error taxonomy shared by pipeline stages and
// context helpers that thread task identity through adapter calls.
package services
