// Package estat decodes the batch statistics payload published by the
// government statistics portal (the getStatsData JSON shape).
//
// The leaf VALUE collection arrives either as a single object or as an array;
// Decode always returns a slice so nothing past this package sees the
// difference. Period maps the portal's ten-character time code (YYYY00MMMM)
// to a YYYY-MM period.
package estat
