package main

import (
	"github.com/pterm/pterm"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = pterm.FgLightBlue
	InfoStyleBG    = pterm.NewStyle(pterm.BgLightBlue, pterm.FgBlack)
)

// PrintErrorMessage prints an error under a tag such as "Type Error"
func PrintErrorMessage(tag string, err error) {
	ErrorStyleBG.Print(tag)
	ErrorColorFG.Println(" " + err.Error())
}

func PrintWarningMessage(tag, msg string) {
	WarnStyleBG.Print(tag)
	WarnColorFG.Println(" " + msg)
}

func PrintInfoMessage(tag, msg string) {
	InfoStyleBG.Print(tag)
	InfoColorFG.Println(" " + msg)
}

func PrintSuccessMessage(tag, msg string) {
	SuccessStyleBG.Print(tag)
	SuccessColorFG.Println(" " + msg)
}

// EnableVerbose turns on pipeline tracing
func EnableVerbose() {
	pterm.EnableDebugMessages()
}

// Tracef logs one pipeline step when verbose output is on
func Tracef(format string, args ...any) {
	pterm.Debug.Printfln(format, args...)
}

// errorTag names the phase an error came from
func errorTag(err error) string {
	switch err.(type) {
	case *SyntaxError:
		return "Syntax Error"
	case *TypeError:
		return "Type Error"
	default:
		return "Error"
	}
}
