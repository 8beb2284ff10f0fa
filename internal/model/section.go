package model

import "fmt"

// Section is a role-gated area of the dashboard.
type Section string

const (
	SectionOverview   Section = "overview"
	SectionClasses    Section = "classes"
	SectionMessages   Section = "messages"
	SectionChannels   Section = "channels"
	SectionStudio     Section = "studio"
	SectionTeachers   Section = "teachers"
	SectionStudents   Section = "students"
	SectionMyStudents Section = "my-students"
	SectionPayments   Section = "payments"
	SectionInvoices   Section = "invoices"
)

// Sections lists every section in navigation order.
var Sections = []Section{
	SectionOverview,
	SectionClasses,
	SectionMessages,
	SectionChannels,
	SectionStudio,
	SectionTeachers,
	SectionStudents,
	SectionMyStudents,
	SectionPayments,
	SectionInvoices,
}

// Allows reports whether the role may open the section.
func (s Section) Allows(r Role) bool {
	switch s {
	case SectionOverview, SectionClasses, SectionMessages, SectionChannels:
		return true
	case SectionStudio, SectionTeachers, SectionStudents, SectionPayments, SectionInvoices:
		return r == RoleOwner
	case SectionMyStudents:
		return r == RoleParent
	}
	panic(fmt.Sprintf("unhandled section %q", string(s)))
}

// SectionsFor returns the navigation visible to the role.
func SectionsFor(r Role) []Section {
	out := make([]Section, 0, len(Sections))
	for _, s := range Sections {
		if s.Allows(r) {
			out = append(out, s)
		}
	}
	return out
}
