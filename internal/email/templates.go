package email

import (
	"fmt"
	"html"
	"time"
)

// EndpointRemovedTemplate gera HTML para o aviso de token de push removido
func EndpointRemovedTemplate(recipientName string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .header { background-color: #0D6EFD; color: white; padding: 20px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 30px; }
        .info-box { background-color: #E7F1FF; border-left: 4px solid #0D6EFD; padding: 15px; margin: 20px 0; }
        .footer { background-color: #f8f9fa; padding: 15px; text-align: center; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>🔕 Notificações desativadas</h1>
        </div>
        <div class="content">
            <p>Olá <strong>%s</strong>,</p>

            <div class="info-box">
                Não conseguimos mais entregar os lembretes da EVA no seu dispositivo, por isso ele foi desvinculado.
            </div>

            <p><strong>Data/Hora:</strong> %s</p>

            <p><strong>Para voltar a receber lembretes de medicação, consultas e mensagens:</strong></p>
            <ul>
                <li>Abra o app da EVA e faça login novamente</li>
                <li>Verifique se as notificações estão habilitadas no app</li>
            </ul>
        </div>
        <div class="footer">
            <p>Este é um email automático do sistema EVA - Assistente Virtual para Idosos</p>
            <p>Não responda a este email</p>
        </div>
    </div>
</body>
</html>
    `, html.EscapeString(recipientName), time.Now().Format("02/01/2006 15:04"))
}
