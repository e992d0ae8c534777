// Package inspect loads hearing pages in a headless browser and reports what
// it saw: every network request the page issued and the media players present
// in the rendered DOM.
//
// It is the only package that drives a browser. Everything downstream treats
// Evidence as opaque input, so extractors can be tested with a fake Inspector.
package inspect
