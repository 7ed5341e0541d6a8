package github

// Classify exposes classify.
var Classify = classify

// RefreshDNS exposes refreshDNS.
var RefreshDNS = refreshDNS
