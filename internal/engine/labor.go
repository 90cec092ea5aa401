package engine

import (
	"log/slog"

	"github.com/KhuramC/EconomySim-sub000/internal/agents"
)

// Openings lists industries below their desired headcount, in declaration
// order.
func (m *Model) Openings() []*agents.Industry {
	var out []*agents.Industry
	for _, ind := range m.Industries {
		if ind.HasOpening() {
			out = append(out, ind)
		}
	}
	return out
}

// Hire employs p at ind when the opening still exists. Income becomes a full
// work week at the offered wage.
func (m *Model) Hire(p *agents.Person, ind *agents.Industry) bool {
	if p.Employed() || !ind.HasOpening() {
		return false
	}
	t := ind.Type
	p.Employer = &t
	p.Income = ind.OfferedWage * agents.StandardWorkWeek
	ind.NumEmployees++
	m.Employees[t] = append(m.Employees[t], p.ID)
	return true
}

// layOff releases the n most recent hires of ind.
func (m *Model) layOff(ind *agents.Industry, n int) {
	staff := m.Employees[ind.Type]
	n = min(n, len(staff))
	if n <= 0 {
		return
	}
	for _, id := range staff[len(staff)-n:] {
		if p, ok := m.PersonIndex[id]; ok {
			p.Employer = nil
		}
	}
	m.Employees[ind.Type] = staff[:len(staff)-n]
	ind.NumEmployees = len(m.Employees[ind.Type])

	slog.Debug("layoffs",
		"week", m.week,
		"industry", ind.Type,
		"released", n,
		"remaining", ind.NumEmployees,
	)
}
