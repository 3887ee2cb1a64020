package email

const (
	subjectQuoteSentFmt      = "Devis %s envoyé à %s"
	subjectQuoteAcceptedFmt  = "Devis %s accepté"
	subjectQuoteRejectedFmt  = "Devis %s refusé"
	subjectQuoteCancelledFmt = "Devis %s annulé"
	subjectQuotesExpiredFmt  = "%d devis expiré(s)"
)
