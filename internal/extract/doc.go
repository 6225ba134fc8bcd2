// Package extract turns a task origin into readable article text. URL
// origins go through a handler chain (wiki pages, PDFs, generic HTML) keyed
// off the response; raw text origins pass through unchanged.
package extract
