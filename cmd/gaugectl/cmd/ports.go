package cmd

import (
	"errors"
	"log"
	"runtime"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "list available serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := enumerator.GetDetailedPortsList()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			return errors.New("no serial ports found")
		}
		for _, port := range ports {
			log.Printf("port: %s\n", port.Name)
			if port.IsUSB {
				log.Printf("   USB ID      %s:%s\n", port.VID, port.PID)
				log.Printf("   USB serial  %s\n", port.SerialNumber)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

// resolvePort validates a named port against the enumerated list, or lets
// the user pick one when none was given.
func resolvePort(portName string) (string, error) {
	if runtime.GOOS == "windows" {
		portName = strings.ToUpper(portName)
	}
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}

	if portName != "" && portName != "*" {
		for _, port := range ports {
			if port.Name == portName {
				return portName, nil
			}
		}
		return "", errors.New("port " + portName + " not found")
	}

	names := make([]string, len(ports))
	for i, port := range ports {
		names[i] = port.Name
	}
	prompt := promptui.Select{
		Label:    "Select adapter port",
		HideHelp: true,
		Items:    names,
	}
	_, result, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return result, nil
}
