package calendar

const (
	NameISO8601   = "iso8601"
	NameGregorian = "gregorian"
	NameJulian    = "julian"
	NameThai      = "thai"
	NameCoptic    = "coptic"
	NameEthiopian = "ethiopian"
	NameIslamic   = "islamic"
)

func ISO8601() Calendar {
	return newCalendar(NameISO8601, "ISO 8601", true, gregorian{})
}

func Gregorian() Calendar {
	return newCalendar(NameGregorian, "Gregorian", false, gregorian{})
}

func Julian() Calendar {
	return newCalendar(NameJulian, "Julian", false, julian{})
}

func Thai() Calendar {
	return newCalendar(NameThai, "Thai", false, offsetYears{offset: 543})
}

func Coptic() Calendar {
	return newCalendar(NameCoptic, "Coptic", false, alexandrian{epoch: 1825030})
}

func Ethiopian() Calendar {
	return newCalendar(NameEthiopian, "Ethiopian", false, alexandrian{epoch: 1724221})
}

func Islamic() Calendar {
	return newCalendar(NameIslamic, "Islamic", false, islamic{})
}

// All returns a fresh instance of every supported calendar.
func All() []Calendar {
	return []Calendar{
		ISO8601(),
		Gregorian(),
		Julian(),
		Thai(),
		Coptic(),
		Ethiopian(),
		Islamic(),
	}
}
