// Package timeparse resolves spoken date and time phrases, as produced by a
// speech-to-text agent, into absolute instants in a given IANA time zone.
//
// Resolution is deterministic and relative to a caller-supplied "now" in the
// target zone. Accepted forms:
//
// Absolute timestamps, tried first:
//   - RFC 3339 with an offset, converted into the target zone
//   - 2006-01-02T15:04[:05] and 2006-01-02 15:04[:05], read in the target zone
//
// Relative instants: "in 20 minutes", "in 2 hours", "in an hour",
// "in forty-five minutes", "in half an hour". The count is a positive number
// or a number word from one to twelve, fifteen, twenty, thirty or forty-five.
// The result is truncated to the minute.
//
// Date phrases:
//   - today, tonight, tomorrow, day after tomorrow, this morning/afternoon/evening
//   - in N days, in N weeks
//   - monday or this monday: today if it is Monday, else the next Monday
//   - next monday: the first Monday strictly after today
//   - june 11, june 11th 2025, 11 june, the 11th of june
//   - the 11th: this month, or next month once the day has passed
//   - 6/11, 6/11/2025 (month first), 2025-06-11
//
// A month and day without a year resolve to the next such date on or after today.
//
// Time phrases: 5pm, 5 pm, 5:30 p.m., 17:00, noon, midnight, five, with
// optional "in the morning", "in the afternoon", "in the evening", "at night".
// A bare hour from 1 to 7 means afternoon, 8 to 11 means morning and 12 means
// noon, unless a qualifier or "tonight" says otherwise. "12 at night" and
// "tonight at 12" are the midnight that ends that day. Leading zeros (09:30)
// and hours above 12 are 24-hour clock readings.
//
// A date without a time of day is rejected. A time without a date resolves to
// today when still ahead of now, otherwise tomorrow. Unknown words are rejected
// rather than ignored.
package timeparse
