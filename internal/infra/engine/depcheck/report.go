package depcheck

import (
	"encoding/json"
	"os"
	"strings"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
)

// Finding is one vulnerability extracted from a dependency-check report.
type Finding struct {
	File        string `json:"file"`
	Version     string `json:"version"`
	CVE         string `json:"cve_id"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

const maxDescriptionLen = 1000

// ParseReport reads a dependency-check JSON report and extracts the
// findings plus their severity histogram.
func ParseReport(path string) ([]Finding, domain.SeverityCounts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.SeverityCounts{}, err
	}
	return parseReportBytes(data)
}

func parseReportBytes(data []byte) ([]Finding, domain.SeverityCounts, error) {
	var doc struct {
		Dependencies []struct {
			FileName          string `json:"fileName"`
			EvidenceCollected struct {
				VersionEvidence []struct {
					Value string `json:"value"`
				} `json:"versionEvidence"`
			} `json:"evidenceCollected"`
			Packages []struct {
				ID string `json:"id"`
			} `json:"packages"`
			Vulnerabilities []struct {
				Name        string `json:"name"`
				Severity    string `json:"severity"`
				Description string `json:"description"`
			} `json:"vulnerabilities"`
		} `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.SeverityCounts{}, err
	}

	var findings []Finding
	var counts domain.SeverityCounts
	for _, dep := range doc.Dependencies {
		version := "unknown"
		if len(dep.EvidenceCollected.VersionEvidence) > 0 {
			version = dep.EvidenceCollected.VersionEvidence[0].Value
		} else {
			// fall back to the package id suffix, e.g. pkg:npm/lodash@4.17.20
			for _, pkg := range dep.Packages {
				if i := strings.LastIndex(pkg.ID, "@"); i >= 0 && i < len(pkg.ID)-1 {
					version = pkg.ID[i+1:]
					break
				}
			}
		}

		for _, v := range dep.Vulnerabilities {
			cve := "N/A"
			if strings.HasPrefix(v.Name, "CVE-") {
				cve = v.Name
			}
			desc := strings.TrimSpace(v.Description)
			if desc == "" {
				desc = "No description provided."
			} else if len(desc) > maxDescriptionLen {
				desc = desc[:maxDescriptionLen]
			}

			sev := strings.ToLower(v.Severity)
			switch sev {
			case "critical":
				counts.Critical++
			case "high":
				counts.High++
			case "medium", "moderate":
				sev = "medium"
				counts.Medium++
			default:
				sev = "low"
				counts.Low++
			}
			counts.Total++

			findings = append(findings, Finding{
				File:        dep.FileName,
				Version:     version,
				CVE:         cve,
				Severity:    sev,
				Description: desc,
			})
		}
	}
	return findings, counts, nil
}
