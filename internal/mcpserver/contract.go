package mcpserver

// CSVFormatContract describes the Outlook CSV export format that LLM
// consumers should follow when importing events.
const CSVFormatContract = `# Gistcal CSV Import Contract

Event imports MUST be CSV in the Outlook calendar export format.

## Structure

` + "```" + `csv
Subject,Start Date,Start Time,End Date,End Time,Location,Description
Team Sync,03/10/2025,9:00 AM,03/10/2025,9:30 AM,Room 4,Weekly status
` + "```" + `

## Rules

1. **The header row is mandatory.** Column names are case-sensitive and must
   match exactly: ` + "`" + `Subject` + "`" + `, ` + "`" + `Start Date` + "`" + `, ` + "`" + `Start Time` + "`" + `, ` + "`" + `End Date` + "`" + `,
   ` + "`" + `End Time` + "`" + `, ` + "`" + `Location` + "`" + `, ` + "`" + `Description` + "`" + `. Column ORDER does not matter,
   and unknown extra columns are ignored.
2. **Dates** use MM/DD/YYYY (e.g. ` + "`" + `03/10/2025` + "`" + `). **Times** use 12-hour
   clock with AM/PM (e.g. ` + "`" + `9:00 AM` + "`" + `, ` + "`" + `12:30 PM` + "`" + `). Both are required on
   every row.
3. **All-day events** span midnight to midnight: start time ` + "`" + `12:00 AM` + "`" + `,
   end date the following day, end time ` + "`" + `12:00 AM` + "`" + `.
4. **Subject is required** and, together with start and end, identifies the
   event. Re-importing a row with the same subject, start, and end UPDATES
   the stored location and description instead of creating a duplicate.
5. **End must be at or after start.** Zero-length events are allowed.
6. **Quoting** follows standard CSV: wrap fields containing commas or
   newlines in double quotes, double any embedded quotes.
7. **Encoding** is UTF-8; a leading byte order mark is tolerated.
8. Rows that fail validation are skipped and reported individually — one
   bad row never aborts the rest of the import.

## Example

` + "```" + `csv
Subject,Start Date,Start Time,End Date,End Time,Location,Description
Quarterly Review,04/01/2025,2:00 PM,04/01/2025,3:30 PM,Boardroom,"Q1 results, planning"
Company Holiday,05/26/2025,12:00 AM,05/27/2025,12:00 AM,,Memorial Day
` + "```" + `
`
