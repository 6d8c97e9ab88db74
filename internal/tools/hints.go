package tools

import "runtime"

// managerHint suggests how to obtain a missing package manager.
func managerHint(pm string) string {
	switch pm {
	case "winget":
		if runtime.GOOS != "windows" {
			return "winget is only available on Windows"
		}
		return "install App Installer from the Microsoft Store to get winget"
	case "choco":
		if runtime.GOOS != "windows" {
			return "Chocolatey is only available on Windows"
		}
		return "install Chocolatey from https://chocolatey.org/install"
	case "pip":
		return "install Python (devkit install python) to get pip"
	case "npm":
		return "install Node.js (devkit install nodejs) to get npm"
	case "yarn":
		return "install Yarn (devkit install yarn) or enable corepack"
	default:
		return "install " + pm + " using your platform's package manager"
	}
}
