package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

const noaaFTPHost = "tgftp.nws.noaa.gov:21"

// NOAAClient fetches the latest observation for a station from the NWS FTP
// mirror. It serves as the fallback when the data API is unreachable.
type NOAAClient struct {
	host string
}

func NewNOAAClient() *NOAAClient {
	return &NOAAClient{host: noaaFTPHost}
}

// FetchLatest downloads the station's observation file and returns the METAR
// line. The file holds a timestamp line followed by the report, which may
// wrap onto continuation lines.
func (n *NOAAClient) FetchLatest(station string) (string, error) {
	conn, err := ftp.Dial(n.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return "", fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return "", fmt.Errorf("ftp login: %w", err)
	}

	path := fmt.Sprintf("/data/observations/metar/stations/%s.TXT", strings.ToUpper(station))
	resp, err := conn.Retr(path)
	if err != nil {
		return "", fmt.Errorf("ftp retr %s: %w", path, err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	raw, err := parseCycleFile(strings.NewReader(string(body)), station)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return raw, nil
}

// parseCycleFile extracts the report for a station from an observation file.
// Reports start with the station identifier; subsequent indented lines are
// continuations of the same report.
func parseCycleFile(r io.Reader, station string) (string, error) {
	station = strings.ToUpper(station)
	scanner := bufio.NewScanner(r)

	var parts []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if strings.HasPrefix(line, station+" ") || line == station {
			parts = []string{strings.TrimSpace(line)}
			continue
		}
		if len(parts) > 0 {
			if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
				parts = append(parts, strings.TrimSpace(line))
				continue
			}
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no report for %s", station)
	}
	return strings.Join(parts, " "), nil
}
