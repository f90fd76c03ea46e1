package locale

import "golang.org/x/text/language"

var catalog = map[language.Tag]*Messages{
	language.English: {
		Tag: language.English,
		Certificate: CertificateTexts{
			GeneratedOn:        "Generated On",
			Title:              "Certificate of Completion",
			DocumentID:         "Document Id :",
			DocumentName:       "Subject :",
			Organization:       "Organization :",
			CreatedOn:          "Created on :",
			CompletedOn:        "Completed on :",
			Signers:            "Signers :",
			DocumentHash:       "Document SHA-256 Hash :",
			DocumentOriginator: "Envelope Sender",
			IPAddress:          "IP address :",
			SecurityLevel:      "Security level :",
			EmailOTPAuth:       "Email, OTP Auth",
			SignatureAdoption:  "Signature adoption: Pre-selected style",
			UsingIPAddress:     "Using IP address:",
			SignerEvents:       "Signer Events",
			SignatureColumn:    "Signature",
			TimestampColumn:    "Timestamp",
			Sent:               "Sent:",
			Viewed:             "Viewed:",
			Signed:             "Signed:",
			VerifyCertificate:  "Verify Certificate",
			ScanToVerify:       "Scan to verify",
		},
		Page: PageTexts{
			PageTitle:        "Certificate Verification",
			Verified:         "Certificate Verified",
			Legitimate:       "This document was signed electronically and its certificate is legitimate.",
			ValidCertificate: "Valid Certificate",
			DocumentInfo:     "Document Information",
			DocumentID:       "Document ID",
			DocumentName:     "Document Name",
			Organization:     "Organization",
			Status:           "Status",
			CreatedOn:        "Created On",
			CompletedOn:      "Completed On",
			TotalSigners:     "Total Signers",
			DocumentHash:     "Document SHA-256 Hash",
			HashNote:         "Compare this hash with the hash of your copy to confirm it was not modified.",
			Creator:          "Document Creator",
			Name:             "Name",
			Email:            "Email",
			Company:          "Company",
			Signers:          "Signers",
			Signer:           "Signer",
			SignedOn:         "Signed On",
			IPAddress:        "IP Address",
			NotValidTitle:    "Certificate Not Valid",
			ErrorTitle:       "Verification Error",
			ErrorMessage:     "The certificate could not be verified right now. Please try again later.",
			SecureSignature:  "Secure electronic signatures",
		},
	},
	language.BrazilianPortuguese: {
		Tag: language.BrazilianPortuguese,
		Certificate: CertificateTexts{
			GeneratedOn:        "Gerado em",
			Title:              "Certificado de Conclusão",
			DocumentID:         "ID do Documento :",
			DocumentName:       "Assunto :",
			Organization:       "Organização :",
			CreatedOn:          "Criado em :",
			CompletedOn:        "Concluído em :",
			Signers:            "Signatários :",
			DocumentHash:       "Hash SHA-256 do Documento :",
			DocumentOriginator: "Remetente do envelope",
			IPAddress:          "Endereço IP :",
			SecurityLevel:      "Nível de segurança :",
			EmailOTPAuth:       "E-mail, Autenticação OTP",
			SignatureAdoption:  "Adoção de assinatura: Estilo pré-selecionado",
			UsingIPAddress:     "Usando endereço IP:",
			SignerEvents:       "Eventos do signatário",
			SignatureColumn:    "Assinatura",
			TimestampColumn:    "Registro de hora e data",
			Sent:               "Enviado:",
			Viewed:             "Visualizado:",
			Signed:             "Assinado:",
			VerifyCertificate:  "Verificar Certificado",
			ScanToVerify:       "Escaneie para verificar",
		},
		Page: PageTexts{
			PageTitle:        "Verificação de Certificado",
			Verified:         "Certificado Verificado",
			Legitimate:       "Este documento foi assinado eletronicamente e seu certificado é legítimo.",
			ValidCertificate: "Certificado Válido",
			DocumentInfo:     "Informações do Documento",
			DocumentID:       "ID do Documento",
			DocumentName:     "Nome do Documento",
			Organization:     "Organização",
			Status:           "Status",
			CreatedOn:        "Criado em",
			CompletedOn:      "Concluído em",
			TotalSigners:     "Total de Signatários",
			DocumentHash:     "Hash SHA-256 do Documento",
			HashNote:         "Compare este hash com o da sua cópia para confirmar que ela não foi alterada.",
			Creator:          "Criador do Documento",
			Name:             "Nome",
			Email:            "E-mail",
			Company:          "Empresa",
			Signers:          "Signatários",
			Signer:           "Signatário",
			SignedOn:         "Assinado em",
			IPAddress:        "Endereço IP",
			NotValidTitle:    "Certificado Inválido",
			ErrorTitle:       "Erro de Verificação",
			ErrorMessage:     "Não foi possível verificar o certificado agora. Tente novamente mais tarde.",
			SecureSignature:  "Assinaturas eletrônicas seguras",
		},
	},
	language.Spanish: {
		Tag: language.Spanish,
		Certificate: CertificateTexts{
			GeneratedOn:        "Generado el",
			Title:              "Certificado de Finalización",
			DocumentID:         "ID de Documento :",
			DocumentName:       "Nombre del Documento :",
			Organization:       "Organización :",
			CreatedOn:          "Creado el :",
			CompletedOn:        "Completado el :",
			Signers:            "Firmantes :",
			DocumentHash:       "Hash SHA-256 del Documento :",
			DocumentOriginator: "Creador del documento",
			IPAddress:          "Dirección IP :",
			SecurityLevel:      "Nivel de seguridad :",
			EmailOTPAuth:       "Correo, Autenticación OTP",
			SignatureAdoption:  "Adopción de firma: Estilo preseleccionado",
			UsingIPAddress:     "Usando dirección IP:",
			SignerEvents:       "Eventos del firmante",
			SignatureColumn:    "Firma",
			TimestampColumn:    "Marca de tiempo",
			Sent:               "Enviado:",
			Viewed:             "Visto:",
			Signed:             "Firmado:",
			VerifyCertificate:  "Verificar Certificado",
			ScanToVerify:       "Escanee para verificar",
		},
		Page: PageTexts{
			PageTitle:        "Verificación de Certificado",
			Verified:         "Certificado Verificado",
			Legitimate:       "Este documento fue firmado electrónicamente y su certificado es legítimo.",
			ValidCertificate: "Certificado Válido",
			DocumentInfo:     "Información del Documento",
			DocumentID:       "ID de Documento",
			DocumentName:     "Nombre del Documento",
			Organization:     "Organización",
			Status:           "Estado",
			CreatedOn:        "Creado el",
			CompletedOn:      "Completado el",
			TotalSigners:     "Total de Firmantes",
			DocumentHash:     "Hash SHA-256 del Documento",
			HashNote:         "Compare este hash con el de su copia para confirmar que no fue modificada.",
			Creator:          "Creador del Documento",
			Name:             "Nombre",
			Email:            "Correo",
			Company:          "Empresa",
			Signers:          "Firmantes",
			Signer:           "Firmante",
			SignedOn:         "Firmado el",
			IPAddress:        "Dirección IP",
			NotValidTitle:    "Certificado No Válido",
			ErrorTitle:       "Error de Verificación",
			ErrorMessage:     "No se pudo verificar el certificado en este momento. Inténtelo más tarde.",
			SecureSignature:  "Firmas electrónicas seguras",
		},
	},
	language.French: {
		Tag: language.French,
		Certificate: CertificateTexts{
			GeneratedOn:        "Généré le",
			Title:              "Certificat de Finalisation",
			DocumentID:         "ID du Document :",
			DocumentName:       "Nom du Document :",
			Organization:       "Organisation :",
			CreatedOn:          "Créé le :",
			CompletedOn:        "Terminé le :",
			Signers:            "Signataires :",
			DocumentHash:       "Hash SHA-256 du Document :",
			DocumentOriginator: "Créateur du document",
			IPAddress:          "Adresse IP :",
			SecurityLevel:      "Niveau de sécurité :",
			EmailOTPAuth:       "E-mail, Authentification OTP",
			SignatureAdoption:  "Adoption de la signature : Style présélectionné",
			UsingIPAddress:     "Adresse IP utilisée :",
			SignerEvents:       "Événements du signataire",
			SignatureColumn:    "Signature",
			TimestampColumn:    "Horodatage",
			Sent:               "Envoyé :",
			Viewed:             "Consulté :",
			Signed:             "Signé :",
			VerifyCertificate:  "Vérifier le Certificat",
			ScanToVerify:       "Scanner pour vérifier",
		},
		Page: PageTexts{
			PageTitle:        "Vérification du Certificat",
			Verified:         "Certificat Vérifié",
			Legitimate:       "Ce document a été signé électroniquement et son certificat est authentique.",
			ValidCertificate: "Certificat Valide",
			DocumentInfo:     "Informations sur le Document",
			DocumentID:       "ID du Document",
			DocumentName:     "Nom du Document",
			Organization:     "Organisation",
			Status:           "Statut",
			CreatedOn:        "Créé le",
			CompletedOn:      "Terminé le",
			TotalSigners:     "Nombre de Signataires",
			DocumentHash:     "Hash SHA-256 du Document",
			HashNote:         "Comparez ce hash avec celui de votre copie pour confirmer qu'elle n'a pas été modifiée.",
			Creator:          "Créateur du Document",
			Name:             "Nom",
			Email:            "E-mail",
			Company:          "Entreprise",
			Signers:          "Signataires",
			Signer:           "Signataire",
			SignedOn:         "Signé le",
			IPAddress:        "Adresse IP",
			NotValidTitle:    "Certificat Non Valide",
			ErrorTitle:       "Erreur de Vérification",
			ErrorMessage:     "Le certificat n'a pas pu être vérifié pour le moment. Veuillez réessayer plus tard.",
			SecureSignature:  "Signatures électroniques sécurisées",
		},
	},
	language.German: {
		Tag: language.German,
		Certificate: CertificateTexts{
			GeneratedOn:        "Erstellt am",
			Title:              "Abschlusszertifikat",
			DocumentID:         "Dokument-ID :",
			DocumentName:       "Dokumentname :",
			Organization:       "Organisation :",
			CreatedOn:          "Erstellt am :",
			CompletedOn:        "Abgeschlossen am :",
			Signers:            "Unterzeichner :",
			DocumentHash:       "SHA-256-Hash des Dokuments :",
			DocumentOriginator: "Dokumentersteller",
			IPAddress:          "IP-Adresse :",
			SecurityLevel:      "Sicherheitsstufe :",
			EmailOTPAuth:       "E-Mail, OTP-Authentifizierung",
			SignatureAdoption:  "Signaturübernahme: Vorausgewählter Stil",
			UsingIPAddress:     "Verwendete IP-Adresse:",
			SignerEvents:       "Unterzeichnerereignisse",
			SignatureColumn:    "Unterschrift",
			TimestampColumn:    "Zeitstempel",
			Sent:               "Gesendet:",
			Viewed:             "Angesehen:",
			Signed:             "Unterschrieben:",
			VerifyCertificate:  "Zertifikat prüfen",
			ScanToVerify:       "Zum Prüfen scannen",
		},
		Page: PageTexts{
			PageTitle:        "Zertifikatsprüfung",
			Verified:         "Zertifikat geprüft",
			Legitimate:       "Dieses Dokument wurde elektronisch unterschrieben und sein Zertifikat ist echt.",
			ValidCertificate: "Gültiges Zertifikat",
			DocumentInfo:     "Dokumentinformationen",
			DocumentID:       "Dokument-ID",
			DocumentName:     "Dokumentname",
			Organization:     "Organisation",
			Status:           "Status",
			CreatedOn:        "Erstellt am",
			CompletedOn:      "Abgeschlossen am",
			TotalSigners:     "Anzahl der Unterzeichner",
			DocumentHash:     "SHA-256-Hash des Dokuments",
			HashNote:         "Vergleichen Sie diesen Hash mit dem Ihrer Kopie, um sicherzustellen, dass sie nicht verändert wurde.",
			Creator:          "Dokumentersteller",
			Name:             "Name",
			Email:            "E-Mail",
			Company:          "Unternehmen",
			Signers:          "Unterzeichner",
			Signer:           "Unterzeichner",
			SignedOn:         "Unterschrieben am",
			IPAddress:        "IP-Adresse",
			NotValidTitle:    "Zertifikat ungültig",
			ErrorTitle:       "Prüfungsfehler",
			ErrorMessage:     "Das Zertifikat konnte gerade nicht geprüft werden. Bitte versuchen Sie es später erneut.",
			SecureSignature:  "Sichere elektronische Signaturen",
		},
	},
	language.Italian: {
		Tag: language.Italian,
		Certificate: CertificateTexts{
			GeneratedOn:        "Generato il",
			Title:              "Certificato di Completamento",
			DocumentID:         "ID Documento :",
			DocumentName:       "Nome Documento :",
			Organization:       "Organizzazione :",
			CreatedOn:          "Creato il :",
			CompletedOn:        "Completato il :",
			Signers:            "Firmatari :",
			DocumentHash:       "Hash SHA-256 del Documento :",
			DocumentOriginator: "Creatore del documento",
			IPAddress:          "Indirizzo IP :",
			SecurityLevel:      "Livello di sicurezza :",
			EmailOTPAuth:       "Email, Autenticazione OTP",
			SignatureAdoption:  "Adozione della firma: Stile preselezionato",
			UsingIPAddress:     "Indirizzo IP utilizzato:",
			SignerEvents:       "Eventi del firmatario",
			SignatureColumn:    "Firma",
			TimestampColumn:    "Data e ora",
			Sent:               "Inviato:",
			Viewed:             "Visualizzato:",
			Signed:             "Firmato:",
			VerifyCertificate:  "Verifica Certificato",
			ScanToVerify:       "Scansiona per verificare",
		},
		Page: PageTexts{
			PageTitle:        "Verifica del Certificato",
			Verified:         "Certificato Verificato",
			Legitimate:       "Questo documento è stato firmato elettronicamente e il suo certificato è autentico.",
			ValidCertificate: "Certificato Valido",
			DocumentInfo:     "Informazioni sul Documento",
			DocumentID:       "ID Documento",
			DocumentName:     "Nome Documento",
			Organization:     "Organizzazione",
			Status:           "Stato",
			CreatedOn:        "Creato il",
			CompletedOn:      "Completato il",
			TotalSigners:     "Totale Firmatari",
			DocumentHash:     "Hash SHA-256 del Documento",
			HashNote:         "Confronta questo hash con quello della tua copia per verificare che non sia stata modificata.",
			Creator:          "Creatore del Documento",
			Name:             "Nome",
			Email:            "Email",
			Company:          "Azienda",
			Signers:          "Firmatari",
			Signer:           "Firmatario",
			SignedOn:         "Firmato il",
			IPAddress:        "Indirizzo IP",
			NotValidTitle:    "Certificato Non Valido",
			ErrorTitle:       "Errore di Verifica",
			ErrorMessage:     "Non è stato possibile verificare il certificato in questo momento. Riprova più tardi.",
			SecureSignature:  "Firme elettroniche sicure",
		},
	},
}
