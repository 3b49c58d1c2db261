package mcpserver

// EventSchemaContract describes the event shape the tools accept and return.
const EventSchemaContract = `# Govcal Event Contract

Events extracted from Thai government documents use this JSON shape.

## Shape

` + "```" + `json
{
  "title": "ประชุมคณะกรรมการ",
  "dates": [
    {"startDateTime": "2025-03-15T14:00:00", "endDateTime": "2025-03-15T16:00:00"}
  ],
  "location": "ห้องประชุม A",
  "description": ""
}
` + "```" + `

## Rules

1. **title** is required and must not be blank.
2. **dates** holds one entry per occurrence, in document order. Each entry needs
   both ` + "`" + `startDateTime` + "`" + ` and ` + "`" + `endDateTime` + "`" + `, and the start must come strictly before the end.
3. **Times are Bangkok wall-clock time without an offset** (` + "`" + `YYYY-MM-DDTHH:MM:SS` + "`" + `).
   Do not append ` + "`" + `Z` + "`" + ` or ` + "`" + `+07:00` + "`" + `; the calendar is told the zone is Asia/Bangkok.
   ` + "`" + `YYYY-MM-DDTHH:MM` + "`" + ` is accepted and completed with ` + "`" + `:00` + "`" + `.
4. **Years are Common Era.** Documents print Buddhist-era years (พ.ศ.); subtract 543.
5. The legacy flat form with top-level ` + "`" + `startDateTime` + "`" + `/` + "`" + `endDateTime` + "`" + ` and no ` + "`" + `dates` + "`" + `
   is still accepted and treated as a single occurrence.
6. **location** and **description** are optional; use empty strings when absent.

## Tools

- ` + "`" + `extract_event` + "`" + ` reads a JPEG, PNG, WEBP or GIF (at most 20 MB) and returns this shape
  without saving. Review it before saving.
- ` + "`" + `create_calendar_events` + "`" + ` saves one calendar entry per date range and returns the links in
  the same order. Saving twice creates duplicates.
- ` + "`" + `format_event_summary` + "`" + ` renders the Thai summary shown to chat users.
`
