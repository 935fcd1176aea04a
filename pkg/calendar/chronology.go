package calendar

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

// gregorian is the proleptic Gregorian calendar.
type gregorian struct{}

func (gregorian) toJDN(y, m, d int) int {
	a := (14 - m) / 12
	yy := y + 4800 - a
	mm := m + 12*a - 3
	return d + (153*mm+2)/5 + 365*yy + yy/4 - yy/100 + yy/400 - 32045
}

func (gregorian) fromJDN(jdn int) (int, int, int) {
	a := jdn + 32044
	b := (4*a + 3) / 146097
	c := a - 146097*b/4
	d := (4*c + 3) / 1461
	e := c - 1461*d/4
	m := (5*e + 2) / 153
	return 100*b + d - 4800 + m/10, m + 3 - 12*(m/10), e - (153*m+2)/5 + 1
}

func (gregorian) monthsInYear(int) int { return 12 }

func (gregorian) daysInMonth(y, m int) int {
	switch m {
	case 2:
		if y%4 == 0 && (y%100 != 0 || y%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

type julian struct{}

func (julian) toJDN(y, m, d int) int {
	a := (14 - m) / 12
	yy := y + 4800 - a
	mm := m + 12*a - 3
	return d + (153*mm+2)/5 + 365*yy + yy/4 - 32083
}

func (julian) fromJDN(jdn int) (int, int, int) {
	c := jdn + 32082
	d := (4*c + 3) / 1461
	e := c - 1461*d/4
	m := (5*e + 2) / 153
	return d - 4800 + m/10, m + 3 - 12*(m/10), e - (153*m+2)/5 + 1
}

func (julian) monthsInYear(int) int { return 12 }

func (julian) daysInMonth(y, m int) int {
	if m == 2 && y%4 == 0 {
		return 29
	}
	return gregorian{}.daysInMonth(1, m)
}

// offsetYears is a Gregorian calendar with a shifted era.
type offsetYears struct {
	gregorian
	offset int
}

func (o offsetYears) toJDN(y, m, d int) int {
	return o.gregorian.toJDN(y-o.offset, m, d)
}

func (o offsetYears) fromJDN(jdn int) (int, int, int) {
	y, m, d := o.gregorian.fromJDN(jdn)
	return y + o.offset, m, d
}

func (o offsetYears) daysInMonth(y, m int) int {
	return o.gregorian.daysInMonth(y-o.offset, m)
}

// alexandrian covers the Coptic and Ethiopian calendars: twelve months of
// thirty days followed by an epagomenal month of five or six days.
type alexandrian struct {
	epoch int
}

func (a alexandrian) toJDN(y, m, d int) int {
	return a.epoch - 1 + 365*(y-1) + floorDiv(y, 4) + 30*(m-1) + d
}

func (a alexandrian) fromJDN(jdn int) (int, int, int) {
	y := floorDiv(4*(jdn-a.epoch)+1463, 1461)
	m := floorDiv(jdn-a.toJDN(y, 1, 1), 30) + 1
	return y, m, jdn + 1 - a.toJDN(y, m, 1)
}

func (alexandrian) monthsInYear(int) int { return 13 }

func (alexandrian) daysInMonth(y, m int) int {
	if m < 13 {
		return 30
	}
	if floorMod(y, 4) == 3 {
		return 6
	}
	return 5
}

// islamic is the tabular Islamic calendar with the civil epoch.
type islamic struct{}

const islamicEpoch = 1948440

func (islamic) toJDN(y, m, d int) int {
	return d + ceilDiv(59*(m-1), 2) + (y-1)*354 + floorDiv(3+11*y, 30) + islamicEpoch - 1
}

func (i islamic) fromJDN(jdn int) (int, int, int) {
	y := floorDiv(30*(jdn-islamicEpoch)+10646, 10631)
	m := min(12, ceilDiv(2*(jdn-29-i.toJDN(y, 1, 1)), 59)+1)
	return y, m, jdn - i.toJDN(y, m, 1) + 1
}

func (islamic) monthsInYear(int) int { return 12 }

func (islamic) daysInMonth(y, m int) int {
	if m%2 == 1 {
		return 30
	}
	if m == 12 && floorMod(14+11*y, 30) < 11 {
		return 30
	}
	return 29
}
