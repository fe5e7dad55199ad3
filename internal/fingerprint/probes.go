package fingerprint

import (
	"context"
	"errors"
	"net"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/riskianand4/fieldkeeper/internal/models"
)

// serialProbeTimeout ограничивает единственную потенциально зависающую
// пробу (вызов внешней утилиты за серийным номером)
const serialProbeTimeout = 1 * time.Second

// DefaultProbes возвращает стандартный набор проб устройства.
// Четыре волатильных сигнала (hostname, timezone, language, platform)
// исключены из валидации: они меняются по безобидным причинам
// (переименование машины, переход на летнее время, смена локали).
// Четыре критических сигнала (machineid, hardware, serial, interfaces)
// участвуют в сравнении с порогом 75%.
func DefaultProbes() []Probe {
	return []Probe{
		{
			Name:     models.ComponentHostname,
			Sentinel: "no-hostname",
			Collect:  collectHostname,
		},
		{
			Name:     models.ComponentTimezone,
			Sentinel: "no-timezone",
			Collect:  collectTimezone,
		},
		{
			Name:     models.ComponentLanguage,
			Sentinel: "no-language",
			Collect:  collectLanguage,
		},
		{
			Name:     models.ComponentPlatform,
			Sentinel: "no-platform",
			Collect:  collectPlatform,
		},
		{
			Name:     models.ComponentMachineID,
			Critical: true,
			Sentinel: "no-machineid",
			Collect:  collectMachineID,
		},
		{
			Name:     models.ComponentHardware,
			Critical: true,
			Sentinel: "no-hardware",
			Collect:  collectHardware,
		},
		{
			Name:     models.ComponentSerial,
			Critical: true,
			Sentinel: "no-serial",
			Collect:  collectSerial,
		},
		{
			Name:     models.ComponentInterfaces,
			Critical: true,
			Sentinel: "no-interfaces",
			Collect:  collectInterfaces,
		},
	}
}

func collectHostname(ctx context.Context) (string, error) {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "no-hostname", nil
	}
	return hostname, nil
}

func collectTimezone(ctx context.Context) (string, error) {
	// IANA-имя из окружения, если задано
	if tz := os.Getenv("TZ"); tz != "" {
		return tz, nil
	}
	if data, err := os.ReadFile("/etc/timezone"); err == nil {
		if tz := strings.TrimSpace(string(data)); tz != "" {
			return tz, nil
		}
	}
	// Деградация до аббревиатуры зоны
	zone, _ := time.Now().Zone()
	if zone == "" {
		return "no-timezone", nil
	}
	return zone, nil
}

func collectLanguage(ctx context.Context) (string, error) {
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if lang := os.Getenv(env); lang != "" {
			return lang, nil
		}
	}
	return "no-language", nil
}

func collectPlatform(ctx context.Context) (string, error) {
	return runtime.GOOS + "/" + runtime.GOARCH, nil
}

// collectMachineID читает идентификатор инсталляции ОС.
func collectMachineID(ctx context.Context) (string, error) {
	paths := []string{
		"/etc/machine-id",
		"/var/lib/dbus/machine-id",
		"/sys/class/dmi/id/product_uuid",
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "no-machineid", nil
}

// collectHardware снимает пару "<vendor>|<product>" - аналог пары
// vendor|renderer в оригинальном стеке.
func collectHardware(ctx context.Context) (string, error) {
	switch runtime.GOOS {
	case "linux":
		vendor := readSysFile("/sys/class/dmi/id/sys_vendor")
		product := readSysFile("/sys/class/dmi/id/product_name")
		if vendor == "" && product == "" {
			return "no-hardware", nil
		}
		return vendor + "|" + product, nil
	case "darwin":
		out, err := exec.CommandContext(ctx, "sysctl", "-n", "hw.model").Output()
		if err != nil {
			return "hardware-error", nil
		}
		model := strings.TrimSpace(string(out))
		if model == "" {
			return "no-hardware", nil
		}
		return "apple|" + model, nil
	default:
		return "no-hardware", nil
	}
}

// collectSerial - единственная проба с собственным таймаутом:
// обращение к внешней утилите может зависнуть, поэтому через 1 секунду
// проба деградирует до sentinel вместо блокировки всей генерации.
func collectSerial(ctx context.Context) (string, error) {
	// Сначала дешевый путь без exec
	if serial := readSysFile("/sys/class/dmi/id/product_serial"); serial != "" {
		return serial, nil
	}

	ctx, cancel := context.WithTimeout(ctx, serialProbeTimeout)
	defer cancel()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.CommandContext(ctx, "hostid")
	case "darwin":
		cmd = exec.CommandContext(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice")
	default:
		return "no-serial", nil
	}

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "serial-timeout", nil
		}
		return "serial-error", nil
	}

	serial := parseSerialOutput(string(out))
	if serial == "" {
		return "serial-empty", nil
	}
	return serial, nil
}

func parseSerialOutput(out string) string {
	// ioreg печатает блок свойств; вытаскиваем IOPlatformSerialNumber
	if strings.Contains(out, "IOPlatformSerialNumber") {
		for _, line := range strings.Split(out, "\n") {
			if !strings.Contains(line, "IOPlatformSerialNumber") {
				continue
			}
			parts := strings.Split(line, "\"")
			if len(parts) >= 4 {
				return parts[3]
			}
		}
		return ""
	}
	return strings.TrimSpace(out)
}

// collectInterfaces собирает MAC-адреса физических интерфейсов:
// отсортированный список, склеенный запятыми.
func collectInterfaces(ctx context.Context) (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "no-interfaces", nil
	}

	var macs []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" {
			macs = append(macs, mac)
		}
	}
	if len(macs) == 0 {
		return "no-interfaces", nil
	}

	sort.Strings(macs)
	return strings.Join(macs, ","), nil
}

func readSysFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
