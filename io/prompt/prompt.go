// Package prompt reads operator input from the terminal, hiding input that
// must not be echoed such as keystore passwords.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

var au = aurora.NewAurora(true)

// NotEmpty is a validation function that ensures the input is not empty.
func NotEmpty(input string) error {
	if input == "" {
		return errors.New("input cannot be empty")
	}
	return nil
}

// DefaultPrompt prompts the user for any text and performs no validation.
// If the input is empty, it returns the default value.
func DefaultPrompt(promptText, defaultValue string) (string, error) {
	var response string
	if defaultValue != "" {
		fmt.Printf("%s %s:\n", promptText, fmt.Sprintf("(%s: %s)", au.BrightGreen("default"), defaultValue))
	} else {
		fmt.Printf("%s:\n", promptText)
	}
	scanner := bufio.NewScanner(os.Stdin)
	if ok := scanner.Scan(); ok {
		item := scanner.Text()
		response = strings.TrimRight(item, "\r\n")
		if response == "" {
			return defaultValue, nil
		}
		return response, nil
	}
	return "", errors.New("could not scan text input")
}

// ValidatePrompt requests the user for text and expects the user to fulfill
// the provided validation function.
func ValidatePrompt(r io.Reader, promptText string, validateFunc func(string) error) (string, error) {
	var responseValid bool
	var response string
	for !responseValid {
		fmt.Printf("%s:\n", promptText)
		scanner := bufio.NewScanner(r)
		if ok := scanner.Scan(); ok {
			item := scanner.Text()
			response = strings.TrimRight(item, "\r\n")
			if err := validateFunc(response); err != nil {
				fmt.Printf("Entered text caused an error: %s\n", err)
			} else {
				responseValid = true
			}
		} else {
			return "", errors.New("could not scan text input")
		}
	}
	return response, nil
}

// PasswordPrompt prompts the user for a password, that repeatedly requests
// the password until it qualifies the passed-in validation function. The
// input is not echoed back to the terminal.
func PasswordPrompt(promptText string, validateFunc func(string) error) (string, error) {
	var response string
	var responseValid bool
	for !responseValid {
		fmt.Printf("%s: ", au.Bold(promptText))
		bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Println("")
		response = strings.TrimRight(string(bytePassword), "\r\n")
		if err := validateFunc(response); err != nil {
			fmt.Printf("\nCould not validate password input: %s\n", err)
		} else {
			responseValid = true
		}
	}
	return response, nil
}
